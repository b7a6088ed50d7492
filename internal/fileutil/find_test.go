package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	root := t.TempDir()

	// root/
	//   packages.config
	//   Solution.sln
	//   App/
	//     packages.config
	//     Nested/
	//       PACKAGES.CONFIG
	//       Deeper/
	//         packages.config
	//   .nuget/
	//     packages.config
	files := []string{
		"packages.config",
		"Solution.sln",
		"App/packages.config",
		"App/Nested/PACKAGES.CONFIG",
		"App/Nested/Deeper/packages.config",
		".nuget/packages.config",
	}
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("<packages />"), 0644))
	}

	tests := []struct {
		name string
		opts FindOptions
		want []string
	}{
		{
			name: "root only",
			opts: FindOptions{Names: []string{"packages.config"}, MaxLevel: 0},
			want: []string{"packages.config"},
		},
		{
			name: "one level",
			opts: FindOptions{Names: []string{"packages.config"}, MaxLevel: 1},
			want: []string{".nuget/packages.config", "App/packages.config", "packages.config"},
		},
		{
			name: "names are case-insensitive",
			opts: FindOptions{Names: []string{"Packages.Config"}, MaxLevel: 2, SkipHidden: true},
			want: []string{"App/Nested/PACKAGES.CONFIG", "App/packages.config", "packages.config"},
		},
		{
			name: "unlimited",
			opts: FindOptions{Names: []string{"packages.config"}, MaxLevel: -1, SkipHidden: true},
			want: []string{
				"App/Nested/Deeper/packages.config",
				"App/Nested/PACKAGES.CONFIG",
				"App/packages.config",
				"packages.config",
			},
		},
		{
			name: "several names",
			opts: FindOptions{Names: []string{"packages.config", "solution.sln"}, MaxLevel: 0},
			want: []string{"Solution.sln", "packages.config"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFiles(root, tt.opts)
			require.NoError(t, err)

			want := make([]string, len(tt.want))
			for i, rel := range tt.want {
				want[i] = filepath.Join(root, filepath.FromSlash(rel))
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestFindFiles_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "packages.config")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := FindFiles(root, FindOptions{})
	assert.Error(t, err)

	_, err = FindFiles(filepath.Join(root, "missing"), FindOptions{Names: []string{"x"}})
	assert.Error(t, err)

	_, err = FindFiles(file, FindOptions{Names: []string{"x"}})
	assert.ErrorContains(t, err, "not a directory")
}

func TestLevel(t *testing.T) {
	root := filepath.Join("ws")
	assert.Equal(t, 0, Level(root, root))
	assert.Equal(t, 1, Level(root, filepath.Join(root, "App")))
	assert.Equal(t, 3, Level(root, filepath.Join(root, "src", "Lib", "Tests")))
}
