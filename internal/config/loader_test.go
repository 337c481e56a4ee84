package config

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFS struct {
	home    string
	homeErr error
	files   map[string][]byte
	readErr error
}

func (f fakeFS) UserHomeDir() (string, error) {
	if f.homeErr != nil {
		return "", f.homeErr
	}
	return f.home, nil
}

func (f fakeFS) ReadFile(path string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	data, ok := f.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

const configPath = "/home/chef/.config/chefchat/config.json"

func TestLoad(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{home: "/home/chef"})

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("NoHomeDirUsesDefaults", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{homeErr: errors.New("no home")})

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{
			home: "/home/chef",
			files: map[string][]byte{
				configPath: []byte(`{
					"provider": {"backend": "gemini", "model": "gemini-2.0-flash", "api_key_env": "GEMINI_API_KEY"},
					"agent": {"max_turns": 5}
				}`),
			},
		})

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.Provider.Backend)
		assert.Equal(t, "gemini-2.0-flash", cfg.Provider.Model)
		assert.Equal(t, "GEMINI_API_KEY", cfg.Provider.APIKeyEnv)
		assert.Equal(t, 5, cfg.Agent.MaxTurns)

		// Unset keys keep their defaults.
		defaults := DefaultConfig()
		assert.Equal(t, defaults.Provider.MaxTokens, cfg.Provider.MaxTokens)
		assert.Equal(t, defaults.Agent.AutoCompactThreshold, cfg.Agent.AutoCompactThreshold)
		assert.Equal(t, defaults.Tools.BashAllowlist, cfg.Tools.BashAllowlist)
	})

	t.Run("ExplicitZeroOverrides", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{
			home: "/home/chef",
			files: map[string][]byte{
				configPath: []byte(`{"agent": {"max_turns": 0, "streaming": false}}`),
			},
		})

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Agent.MaxTurns)
		assert.False(t, cfg.Agent.Streaming)
	})

	t.Run("ParseError", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{
			home:  "/home/chef",
			files: map[string][]byte{configPath: []byte(`{not json`)},
		})

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse")
	})

	t.Run("ReadErrorOtherThanNotExist", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{home: "/home/chef", readErr: fs.ErrPermission})

		_, err := loader.Load()
		assert.Error(t, err)
	})

	t.Run("InvalidValuesRejected", func(t *testing.T) {
		loader := NewLoaderWithFS(fakeFS{
			home: "/home/chef",
			files: map[string][]byte{
				configPath: []byte(`{"provider": {"backend": "anthropic"}, "agent": {"max_turns": -1}}`),
			},
		})

		_, err := loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider.backend")
		assert.Contains(t, err.Error(), "agent.max_turns")
	})
}

func TestValidate(t *testing.T) {
	t.Run("DefaultsAreValid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("CollectsAllFailures", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Provider.Model = ""
		cfg.Provider.MaxTokens = 0
		cfg.Agent.StreamBatchSize = 0
		cfg.Tools.MaxFileSize = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider.model")
		assert.Contains(t, err.Error(), "provider.max_tokens")
		assert.Contains(t, err.Error(), "agent.stream_batch_size")
		assert.Contains(t, err.Error(), "tools.max_file_size")
	})
}

func TestAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.APIKeyEnv = "CHEFCHAT_TEST_KEY"

	t.Setenv("CHEFCHAT_TEST_KEY", "sk-test")
	assert.Equal(t, "sk-test", cfg.APIKey())

	cfg.Provider.APIKeyEnv = ""
	assert.Equal(t, "", cfg.APIKey())
}
