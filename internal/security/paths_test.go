package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(realDir, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(realDir, link))

	want, err := filepath.EvalSymlinks(realDir)
	require.NoError(t, err)

	got, err := CanonicalPath(filepath.Join(link, "new", "out.mp4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(want, "new", "out.mp4"), got, "missing leaf resolves through the parent symlink")

	got, err = CanonicalPath(filepath.Join(dir, "real", "..", "link"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(input, []byte("video"), 0o644))
	alias := filepath.Join(dir, "alias.mp4")
	require.NoError(t, os.Symlink(input, alias))

	tests := []struct {
		name          string
		output        string
		intermediates []string
		wantErr       bool
		overwrite     bool
	}{
		{name: "distinct output", output: filepath.Join(dir, "clip_motion.mp4")},
		{name: "same path", output: input, wantErr: true, overwrite: true},
		{name: "dotted path", output: filepath.Join(dir, ".", "clip.mp4"), wantErr: true, overwrite: true},
		{name: "symlink to input", output: alias, wantErr: true, overwrite: true},
		{name: "no extension", output: filepath.Join(dir, "clip_motion"), wantErr: true},
		{
			name:          "intermediate collides",
			output:        filepath.Join(dir, "out.mp4"),
			intermediates: []string{input},
			wantErr:       true,
			overwrite:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(input, tt.output, tt.intermediates...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.overwrite {
				assert.ErrorIs(t, err, ErrOverwritesInput)
			}
		})
	}
}
