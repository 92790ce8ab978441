package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/action"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
watched_roots:
  - /home/user/Downloads
action_mode: AskUser
ask_min_score: 15
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"/home/user/Downloads"}, cfg.WatchedRoots)
	require.Equal(t, action.AskUser, cfg.ActionMode)
	require.Equal(t, 15, cfg.AskMinScore)
	require.Equal(t, Default().MaxFileSizeMB, cfg.MaxFileSizeMB)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_option: true\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Default()
	cfg.MalwareThreshold = 1.5
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedScoreBands(t *testing.T) {
	cfg := Default()
	cfg.AskMinScore = 90
	cfg.AutoQuarantineMinScore = 10
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownActionMode(t *testing.T) {
	cfg := Default()
	cfg.ActionMode = action.Mode("NotARealMode")
	require.Error(t, cfg.Validate())
}

func TestActionPolicyDerivesFromConfig(t *testing.T) {
	cfg := Default()
	policy := cfg.ActionPolicy()
	require.Equal(t, cfg.ActionMode, policy.Mode)
	require.Equal(t, cfg.AskMinScore, policy.AskMinScore)
}
