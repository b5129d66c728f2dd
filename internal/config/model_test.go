package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validModel() *Model {
	m := &Model{
		Tasks: []*Task{
			{Name: "styles", Sources: []string{"app/styles/*.css"}, Destinations: []string{"app/css"}},
			{Name: "images", Sources: []string{"app/img/**/*"}, Destinations: []string{"dist/img"}},
		},
		Watches: []*Watch{
			{Name: "styles", Globs: []string{"app/styles/**/*.css"}, Tasks: []string{"styles"}, Reload: ReloadStyle},
		},
		Dev: &Dev{Tasks: []string{"styles"}},
		Release: &Release{
			Tasks:    []string{"images"},
			Relocate: []*Relocation{{Name: "css", Sources: []string{"app/css/*.css"}, Dest: "dist/css"}},
		},
	}
	m.ApplyDefaults()
	return m
}

func TestApplyDefaults(t *testing.T) {
	m := &Model{Watches: []*Watch{{Name: "w", Globs: []string{"x"}}}}

	m.ApplyDefaults()

	require.NotNil(t, m.Server)
	assert.Equal(t, DefaultServerRoot, m.Server.Root)
	assert.Equal(t, DefaultServerPort, m.Server.Port)
	assert.Equal(t, DefaultClientURL, m.Server.ClientURL)
	assert.Equal(t, DefaultDist, m.Release.Dist)
	assert.Equal(t, DefaultLockFile, m.Release.LockFile)
	assert.Equal(t, ReloadFull, m.Watches[0].Reload)
	assert.NotNil(t, m.Dev)
}

func TestValidate(t *testing.T) {
	t.Run("valid model", func(t *testing.T) {
		assert.NoError(t, validModel().Validate())
	})

	testCases := []struct {
		name    string
		mutate  func(m *Model)
		wantErr string
	}{
		{
			name:    "task without sources",
			mutate:  func(m *Model) { m.Tasks[0].Sources = nil },
			wantErr: "Sources",
		},
		{
			name:    "duplicate task",
			mutate:  func(m *Model) { m.Tasks = append(m.Tasks, &Task{Name: "styles", Sources: []string{"a"}}) },
			wantErr: `task "styles" declared more than once`,
		},
		{
			name:    "watch references unknown task",
			mutate:  func(m *Model) { m.Watches[0].Tasks = []string{"sass"} },
			wantErr: `watch "styles" references unknown task "sass"`,
		},
		{
			name:    "unknown dependency",
			mutate:  func(m *Model) { m.Tasks[0].DependsOn = []string{"fonts"} },
			wantErr: `depends_on references unknown task "fonts"`,
		},
		{
			name:    "bad reload kind",
			mutate:  func(m *Model) { m.Watches[0].Reload = "partial" },
			wantErr: "Reload",
		},
		{
			name:    "dist is the project root",
			mutate:  func(m *Model) { m.Release.Dist = "." },
			wantErr: "inside the project root",
		},
		{
			name:    "dist escapes the project root",
			mutate:  func(m *Model) { m.Release.Dist = "../out" },
			wantErr: "inside the project root",
		},
		{
			name:    "relocation outside dist",
			mutate:  func(m *Model) { m.Release.Relocate[0].Dest = "app/css" },
			wantErr: "outside the distribution directory",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := validModel()
			tc.mutate(m)

			err := m.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestReloadKind_Stronger(t *testing.T) {
	assert.True(t, ReloadFull.Stronger(ReloadStyle))
	assert.True(t, ReloadStyle.Stronger(ReloadNone))
	assert.False(t, ReloadNone.Stronger(ReloadStyle))
	assert.False(t, ReloadFull.Stronger(ReloadFull))
}
