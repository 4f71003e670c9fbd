package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSSMClient は SSMParameterGetter のテスト用モック
type MockSSMClient struct {
	mock.Mock
}

func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

func paramNamed(name string) interface{} {
	return mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == name
	})
}

func paramValue(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(value)}}
}

// clearEnv テストに影響する環境変数を空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "EVENT_BACKEND", "EVENT_API_BASE_URL", "EVENT_API_TOKEN", "REQUEST_TIMEOUT",
		"GOOGLE_CREDENTIALS", "CALENDAR_ID", "LINE_CHANNEL_ACCESS_TOKEN", "LINE_USER_ID",
		"LOG_LEVEL", "TIMEZONE",
		"SSM_GOOGLE_CREDS_PARAM", "SSM_EVENT_API_TOKEN_PARAM", "SSM_LINE_TOKEN_PARAM", "SSM_LINE_USER_ID_PARAM",
	} {
		t.Setenv(key, "")
	}
}

// --- getEnvOrDefault テスト ---

func TestGetEnvOrDefault_WithValue(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "test-value")
	result := getEnvOrDefault("TEST_ENV_KEY", "default")
	assert.Equal(t, "test-value", result)
}

func TestGetEnvOrDefault_WithDefault(t *testing.T) {
	result := getEnvOrDefault("NONEXISTENT_KEY_FOR_TEST_12345", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	t.Setenv("TEST_ENV_WHITESPACE", "  trimmed  ")
	result := getEnvOrDefault("TEST_ENV_WHITESPACE", "default")
	assert.Equal(t, "trimmed", result)
}

// --- GetGoogleCredentialsJSON テスト ---

func TestGetGoogleCredentialsJSON_Valid(t *testing.T) {
	cfg := &Config{GoogleCredentials: `{"type": "service_account", "project_id": "test"}`}
	result, err := cfg.GetGoogleCredentialsJSON()
	require.NoError(t, err)
	assert.Equal(t, "service_account", result["type"])
	assert.Equal(t, "test", result["project_id"])
}

func TestGetGoogleCredentialsJSON_Invalid(t *testing.T) {
	cfg := &Config{GoogleCredentials: "not valid json"}
	_, err := cfg.GetGoogleCredentialsJSON()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Google認証情報のJSON解析に失敗しました")
}

// --- loadLocalConfig テスト ---

func TestLoadLocalConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENT_API_BASE_URL", "http://localhost:8080")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendREST, cfg.EventBackend)
	assert.Equal(t, "http://localhost:8080", cfg.EventAPIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
}

func TestLoadLocalConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"REST: ベースURLなし", map[string]string{"EVENT_BACKEND": "rest"}, "EVENT_API_BASE_URL環境変数が設定されていません"},
		{"Google: 認証情報なし", map[string]string{"EVENT_BACKEND": "google"}, "GOOGLE_CREDENTIALS環境変数が設定されていません"},
		{"Google: 認証情報がJSONでない", map[string]string{"EVENT_BACKEND": "google", "GOOGLE_CREDENTIALS": "not-json"}, "Google認証情報のJSON解析に失敗しました"},
		{"不明な保存先", map[string]string{"EVENT_BACKEND": "sqlite"}, "EVENT_BACKENDの値が不正です"},
		{"不正なタイムゾーン", map[string]string{"EVENT_API_BASE_URL": "http://x", "TIMEZONE": "Mars/Olympus"}, "タイムゾーン"},
		{"不正なタイムアウト", map[string]string{"EVENT_API_BASE_URL": "http://x", "REQUEST_TIMEOUT": "soon"}, "REQUEST_TIMEOUTの形式が不正です"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := loadLocalConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadLocalConfig_FileBelowEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "petcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
event_backend: google
event_api:
  timeout: 5s
google:
  credentials: '{"type":"service_account"}'
  calendar_id: pets@example.com
line:
  user_id: U-from-file
timezone: Asia/Tokyo
log_level: DEBUG
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LINE_USER_ID", "U-from-env")

	cfg, err := loadLocalConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendGoogle, cfg.EventBackend)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "pets@example.com", cfg.CalendarID)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	// 環境変数がファイルより優先される
	assert.Equal(t, "U-from-env", cfg.LineUserID)
}

func TestLoadLocalConfig_BrokenFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("event_api: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := loadLocalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "設定ファイル")

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = loadLocalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "の読み込みに失敗しました")
}

// --- parseTimeout テスト ---

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"", 30 * time.Second, false},
		{"10", 10 * time.Second, false},
		{"1500ms", 1500 * time.Millisecond, false},
		{"0", 0, true},
		{"-5s", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTimeout(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- RequireLINE / Location テスト ---

func TestRequireLINE(t *testing.T) {
	assert.Error(t, (&Config{}).RequireLINE())
	assert.Error(t, (&Config{LineChannelAccessToken: "token"}).RequireLINE())
	assert.NoError(t, (&Config{LineChannelAccessToken: "token", LineUserID: "U1"}).RequireLINE())
}

func TestLocation(t *testing.T) {
	loc, err := (&Config{Timezone: "Asia/Tokyo"}).Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

// --- getParameter テスト（モック使用） ---

func TestGetParameter_Success(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == "/test/param" && *input.WithDecryption
	})).Return(paramValue("test-value"), nil)

	result, err := cfg.getParameter(context.Background(), "/test/param", true)
	require.NoError(t, err)
	assert.Equal(t, "test-value", result)
	mockSSM.AssertExpectations(t)
}

func TestGetParameter_EmptyValue(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(paramValue(""), nil)

	_, err := cfg.getParameter(context.Background(), "/test/param", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "空の値です")
}

func TestGetParameter_APIError(t *testing.T) {
	mockSSM := new(MockSSMClient)
	cfg := &Config{ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(nil, errors.New("SSM API error"))

	_, err := cfg.getParameter(context.Background(), "/test/param", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "パラメータ /test/param の取得に失敗しました")
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore_REST(t *testing.T) {
	clearEnv(t)
	mockSSM := new(MockSSMClient)
	cfg := &Config{EventBackend: BackendREST, ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, paramNamed("/pet-calendar/event-api-token")).Return(paramValue("api-token-value"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/pet-calendar/line-channel-access-token")).Return(paramValue("line-token-value"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/pet-calendar/line-user-id")).Return(paramValue("line-user-id-value"), nil)

	err := cfg.loadFromParameterStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "api-token-value", cfg.EventAPIToken)
	assert.Empty(t, cfg.GoogleCredentials)
	assert.Equal(t, "line-token-value", cfg.LineChannelAccessToken)
	assert.Equal(t, "line-user-id-value", cfg.LineUserID)
	mockSSM.AssertExpectations(t)
}

func TestLoadFromParameterStore_Google(t *testing.T) {
	clearEnv(t)
	t.Setenv("SSM_GOOGLE_CREDS_PARAM", "/custom/google-creds")
	mockSSM := new(MockSSMClient)
	cfg := &Config{EventBackend: BackendGoogle, ssmClient: mockSSM}

	mockSSM.On("GetParameter", mock.Anything, paramNamed("/custom/google-creds")).Return(paramValue(`{"type":"service_account"}`), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/pet-calendar/line-channel-access-token")).Return(paramValue("line-token-value"), nil)
	mockSSM.On("GetParameter", mock.Anything, paramNamed("/pet-calendar/line-user-id")).Return(nil, errors.New("ParameterNotFound"))

	err := cfg.loadFromParameterStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINE User IDの取得に失敗しました")
	assert.Equal(t, `{"type":"service_account"}`, cfg.GoogleCredentials)
	mockSSM.AssertExpectations(t)
}
