package errors

// Error-kind constants used across the RAG ingestion pipeline and
// retrieval graph. Handlers translate these to HTTP status codes.
const (
	KindUnsupportedFileType = "unsupported_file_type"
	KindFileTooLarge        = "file_too_large"
	KindBlobDownloadFailed  = "blob_download_failed"
	KindParseFailed         = "parse_failed"
	KindEmptyDocument       = "empty_document"
	KindEmbedFailed         = "embed_failed"
	KindVectorUpsertFailed  = "vector_upsert_failed"
	KindDBConnectionFailed  = "db_connection_failed"
	KindLLMProviderFailed   = "llm_provider_failed"
	KindGraderFailed        = "grader_failed"
	KindToolIntegrityFailed = "tool_integrity_failed"
	KindTimeout             = "timeout"
	KindUnauthorized        = "unauthorized"
	KindForbidden           = "forbidden"
	KindNotFound            = "not_found"
	KindInvalidInput        = "invalid_input"
)
