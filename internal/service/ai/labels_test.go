package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	content := "# fruit classes\nfresh_apple\n\n1: rotten_banana\n2: 'orange'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh_apple", "rotten_banana", "orange"}, labels)

	assert.Equal(t, "orange", classLabel(labels, 2))
	assert.Equal(t, "class7", classLabel(labels, 7))
	assert.Equal(t, "class-1", classLabel(labels, -1))
}

func TestLoadLabels_Errors(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n# nothing\n"), 0644))
	_, err = LoadLabels(empty)
	assert.Error(t, err)
}

func TestDecoder_RejectsGarbage(t *testing.T) {
	_, err := Decoder{}.Decode([]byte{0xFF, 0xD8, 0x00, 0x01, 0xFF, 0xD9})
	assert.Error(t, err)
}

func TestAnnotate_WithoutDetectionsReturnsOriginal(t *testing.T) {
	img := &Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
	out, err := Annotate(img, nil)
	require.NoError(t, err)
	assert.Equal(t, img.Data, out)
}
