package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessYAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
		wantErr  string
	}{
		{
			name:     "simple substitution",
			input:    "courseId: {{ .ENV.COURSE_ID }}",
			envVars:  map[string]string{"COURSE_ID": "c-1"},
			expected: "courseId: c-1",
		},
		{
			name:     "multiple variables",
			input:    "title: {{ .ENV.TITLE }}\nmaxPoints: {{ .ENV.POINTS }}",
			envVars:  map[string]string{"TITLE": "Lab", "POINTS": "20"},
			expected: "title: Lab\nmaxPoints: 20",
		},
		{
			name:     "special characters and equals signs",
			input:    "onedriveLink: {{ .ENV.LINK }}",
			envVars:  map[string]string{"LINK": "https://x.example/?a=b&c=d"},
			expected: "onedriveLink: https://x.example/?a=b&c=d",
		},
		{
			name:     "empty value",
			input:    "description: {{ .ENV.EMPTY_VAR }}",
			envVars:  map[string]string{"EMPTY_VAR": ""},
			expected: "description: ",
		},
		{
			name:     "no placeholders",
			input:    "title: plain",
			expected: "title: plain",
		},
		{
			name:    "missing variable",
			input:   "courseId: {{ .ENV.ASSIGNO_SURELY_UNSET }}",
			wantErr: "missing environment variable: ASSIGNO_SURELY_UNSET",
		},
		{
			name:    "invalid template",
			input:   "title: {{ .ENV.TITLE }",
			wantErr: "unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			result, err := PreprocessYAML([]byte(tt.input), "")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestPreprocessYAMLWithEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ASSIGNO_T_COURSE=from_env_file\nASSIGNO_T_GROUP=g-7\n"), 0o600))
	t.Setenv("ASSIGNO_T_COURSE", "from_environment")

	result, err := PreprocessYAML([]byte("courseId: {{ .ENV.ASSIGNO_T_COURSE }}\ngroupId: {{ .ENV.ASSIGNO_T_GROUP }}"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "courseId: from_environment\ngroupId: g-7", string(result))

	_, err = PreprocessYAML([]byte("a: b"), filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err, "a missing .env file is ignored")
}
