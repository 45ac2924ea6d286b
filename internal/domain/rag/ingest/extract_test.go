package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

func TestExtract_PlainTextRoundTrips(t *testing.T) {
	out, err := Extract("txt", []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "hello world", out.Text)
}

func TestExtract_MarkdownUsesSameTextPath(t *testing.T) {
	out, err := Extract(".md", []byte("# heading\n\nbody"))
	require.NoError(t, err)
	require.Equal(t, "# heading\n\nbody", out.Text)
}

func TestExtract_UnsupportedFileTypeReturnsKindError(t *testing.T) {
	_, err := Extract("exe", []byte{0x00})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindUnsupportedFileType))
}

func TestNormalizeFileType_StripsLeadingDotAndLowercases(t *testing.T) {
	require.Equal(t, "pdf", normalizeFileType(".PDF"))
	require.Equal(t, "txt", normalizeFileType(" TXT "))
}

func TestDecodeText_ValidUTF8PassesThrough(t *testing.T) {
	require.Equal(t, "héllo", decodeText([]byte("héllo")))
}
