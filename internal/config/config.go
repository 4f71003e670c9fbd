package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/k-negishi/pet-calendar/internal/logging"
)

// イベントの保存先
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

const defaultRequestTimeout = 30 * time.Second

// SSMParameterGetter Parameter Storeからの取得を抽象化したインターフェース
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// イベントの保存先（rest | google）
	EventBackend string

	// イベントREST API設定
	EventAPIBaseURL string
	EventAPIToken   string
	RequestTimeout  time.Duration

	// Google Calendar設定
	GoogleCredentials string
	CalendarID        string

	// LINE API設定
	LineChannelAccessToken string
	LineUserID             string

	// その他設定
	LogLevel string
	Timezone string

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
	// CONFIG_FILEから読み込んだ値（環境変数より優先度が低い）
	file map[string]string
}

// fileConfig CONFIG_FILEで指定するYAMLの構造
type fileConfig struct {
	EventBackend string `yaml:"event_backend"`
	EventAPI     struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	} `yaml:"event_api"`
	Google struct {
		Credentials string `yaml:"credentials"`
		CalendarID  string `yaml:"calendar_id"`
	} `yaml:"google"`
	LINE struct {
		ChannelAccessToken string `yaml:"channel_access_token"`
		UserID             string `yaml:"user_id"`
	} `yaml:"line"`
	LogLevel string `yaml:"log_level"`
	Timezone string `yaml:"timezone"`
}

// Load 環境に応じて設定を読み込み
func Load(ctx context.Context) (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig(ctx)
	}
	return loadLocalConfig()
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		logging.Debugf(".envファイルが見つかりません: %v", err)
	}

	cfg, err := newBaseConfig()
	if err != nil {
		return nil, err
	}
	cfg.EventAPIToken = cfg.get("EVENT_API_TOKEN", "")
	cfg.GoogleCredentials = cfg.get("GOOGLE_CREDENTIALS", "")
	cfg.LineChannelAccessToken = cfg.get("LINE_CHANNEL_ACCESS_TOKEN", "")
	cfg.LineUserID = cfg.get("LINE_USER_ID", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig(ctx context.Context) (*Config, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	cfg, err := newBaseConfig()
	if err != nil {
		return nil, err
	}
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newBaseConfig 機密情報以外の設定を読み込む
func newBaseConfig() (*Config, error) {
	cfg := &Config{}
	if path := getEnvOrDefault("CONFIG_FILE", ""); path != "" {
		file, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.file = file
	}

	timeout, err := parseTimeout(cfg.get("REQUEST_TIMEOUT", ""))
	if err != nil {
		return nil, err
	}

	cfg.EventBackend = strings.ToLower(cfg.get("EVENT_BACKEND", BackendREST))
	cfg.EventAPIBaseURL = cfg.get("EVENT_API_BASE_URL", "")
	cfg.RequestTimeout = timeout
	cfg.CalendarID = cfg.get("CALENDAR_ID", "primary")
	cfg.LogLevel = cfg.get("LOG_LEVEL", "INFO")
	cfg.Timezone = cfg.get("TIMEZONE", "Asia/Tokyo")
	return cfg, nil
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	switch c.EventBackend {
	case BackendGoogle:
		googleCredsParam := getEnvOrDefault("SSM_GOOGLE_CREDS_PARAM", "/pet-calendar/google-creds")
		googleCreds, err := c.getParameter(ctx, googleCredsParam, true)
		if err != nil {
			return fmt.Errorf("Google認証情報の取得に失敗しました: %w", err)
		}
		c.GoogleCredentials = googleCreds
	default:
		tokenParam := getEnvOrDefault("SSM_EVENT_API_TOKEN_PARAM", "/pet-calendar/event-api-token")
		token, err := c.getParameter(ctx, tokenParam, true)
		if err != nil {
			return fmt.Errorf("イベントAPIトークンの取得に失敗しました: %w", err)
		}
		c.EventAPIToken = token
	}

	lineTokenParam := getEnvOrDefault("SSM_LINE_TOKEN_PARAM", "/pet-calendar/line-channel-access-token")
	lineToken, err := c.getParameter(ctx, lineTokenParam, true)
	if err != nil {
		return fmt.Errorf("LINE Channel Access Tokenの取得に失敗しました: %w", err)
	}
	c.LineChannelAccessToken = lineToken

	lineUserParam := getEnvOrDefault("SSM_LINE_USER_ID_PARAM", "/pet-calendar/line-user-id")
	lineUser, err := c.getParameter(ctx, lineUserParam, true)
	if err != nil {
		return fmt.Errorf("LINE User IDの取得に失敗しました: %w", err)
	}
	c.LineUserID = lineUser

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// Validate 保存先ごとの必須設定項目を確認
func (c *Config) Validate() error {
	switch c.EventBackend {
	case BackendREST:
		if c.EventAPIBaseURL == "" {
			return fmt.Errorf("EVENT_API_BASE_URL環境変数が設定されていません")
		}
	case BackendGoogle:
		if c.GoogleCredentials == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません")
		}
		if _, err := c.GetGoogleCredentialsJSON(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("EVENT_BACKENDの値が不正です: %q", c.EventBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// RequireLINE LINE通知に必要な設定項目を確認
func (c *Config) RequireLINE() error {
	if c.LineChannelAccessToken == "" {
		return fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN環境変数が設定されていません")
	}
	if c.LineUserID == "" {
		return fmt.Errorf("LINE_USER_ID環境変数が設定されていません")
	}
	return nil
}

// Location 設定されたタイムゾーン
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーン %s の読み込みに失敗しました: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetGoogleCredentialsJSON Google認証情報をJSONとして解析
func (c *Config) GetGoogleCredentialsJSON() (map[string]interface{}, error) {
	var credentials map[string]interface{}
	if err := json.Unmarshal([]byte(c.GoogleCredentials), &credentials); err != nil {
		return nil, fmt.Errorf("Google認証情報のJSON解析に失敗しました: %w", err)
	}
	return credentials, nil
}

// get 環境変数、CONFIG_FILE、デフォルト値の順に値を解決
func (c *Config) get(key, defaultValue string) string {
	if value := getEnvOrDefault(key, ""); value != "" {
		return value
	}
	if value := strings.TrimSpace(c.file[key]); value != "" {
		return value
	}
	return defaultValue
}

// loadFile YAMLの設定ファイルを環境変数名をキーにしたマップとして読み込む
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}

	return map[string]string{
		"EVENT_BACKEND":             fc.EventBackend,
		"EVENT_API_BASE_URL":        fc.EventAPI.BaseURL,
		"EVENT_API_TOKEN":           fc.EventAPI.Token,
		"REQUEST_TIMEOUT":           fc.EventAPI.Timeout,
		"GOOGLE_CREDENTIALS":        fc.Google.Credentials,
		"CALENDAR_ID":               fc.Google.CalendarID,
		"LINE_CHANNEL_ACCESS_TOKEN": fc.LINE.ChannelAccessToken,
		"LINE_USER_ID":              fc.LINE.UserID,
		"LOG_LEVEL":                 fc.LogLevel,
		"TIMEZONE":                  fc.Timezone,
	}, nil
}

// parseTimeout "10s"のような期間、または秒数を解析
func parseTimeout(value string) (time.Duration, error) {
	if value == "" {
		return defaultRequestTimeout, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("REQUEST_TIMEOUTは正の値を指定してください: %q", value)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("REQUEST_TIMEOUTの形式が不正です: %q", value)
	}
	return d, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
