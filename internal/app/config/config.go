package config

import (
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/utils"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	godotenv.Load()
}

func NewDriverConfig() *DriverConfig {
	return &DriverConfig{
		MongoDB: MongoDB{
			Port:     utils.GetEnvString("MONGODB_PORT", "27017"),
			Host:     utils.GetEnvString("MONGODB_HOST", "localhost"),
			DbName:   utils.GetEnvString("MONGODB_DB_NAME", "labpulse"),
			Username: utils.GetEnvString("MONGODB_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("MONGODB_PASSWORD", "defaultPassword"),
		},
		Redis: Redis{
			Host:     utils.GetEnvString("REDIS_HOST", "localhost"),
			Port:     utils.GetEnvString("REDIS_PORT", "6379"),
			Password: utils.GetEnvString("REDIS_PASSWORD", ""),
		},
		Logger: Logger{
			Level:               utils.GetEnvString("LOGGER_LEVEL", "debug"),
			OutputFileName:      utils.GetEnvString("LOGGER_OUTPUT_FILENAME", "logger.log"),
			OutputErrorFileName: utils.GetEnvString("LOGGER_OUTPUT_ERROR_FILENAME", "logger_error.log"),
		},
		RabbitMQ: RabbitMQ{
			Port:     utils.GetEnvString("RABBITMQ_PORT", "5672"),
			Host:     utils.GetEnvString("RABBITMQ_HOST", "localhost"),
			Username: utils.GetEnvString("RABBITMQ_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("RABBITMQ_PASSWORD", "defaultPassword"),
		},
		Minio: Minio{
			Port:       utils.GetEnvString("MINIO_PORT", "9000"),
			Host:       utils.GetEnvString("MINIO_HOST", "localhost"),
			Username:   utils.GetEnvString("MINIO_USERNAME", "defaultUsername"),
			Password:   utils.GetEnvString("MINIO_PASSWORD", "defaultPassword"),
			BucketName: utils.GetEnvString("MINIO_BUCKET_NAME", "ai-diagnostics"),
			UseSSL:     utils.GetEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		App: App{
			Env:                      utils.GetEnvString("APP_ENV", "development"),
			Port:                     utils.GetEnvString("APP_PORT", ":8080"),
			Version:                  utils.GetEnvString("APP_VERSION", "v1"),
			Timezone:                 utils.GetEnvString("APP_TIMEZONE", "UTC"),
			EndpointPrefix:           utils.GetEnvString("APP_ENDPOINT_PREFIX", "api"),
			MaxRequests:              utils.GetEnvInt("APP_MAX_REQUESTS", 100),
			ShutdownTimeoutInSeconds: utils.GetEnvInt("APP_SHUTDOWN_TIMEOUT_IN_SECONDS", 15),
			IngestAPIKeyHashes:       parseAPIKeyHashes(utils.GetEnvString("APP_INGEST_API_KEY_HASHES", "")),
		},
		JWT: JWT{
			Secret:        utils.GetEnvString("JWT_SECRET", "defaultSecret"),
			ExpTimeInHour: utils.GetEnvInt("JWT_EXP_TIME_IN_HOUR", 12),
		},
		Models: Models{
			PrimaryEndpoint:         utils.GetEnvString("MODEL_PRIMARY_ENDPOINT", "http://localhost:9101"),
			PrimaryName:             utils.GetEnvString("MODEL_PRIMARY_NAME", "clinical-primary"),
			ReviewEndpoint:          utils.GetEnvString("MODEL_REVIEW_ENDPOINT", "http://localhost:9102"),
			ReviewName:              utils.GetEnvString("MODEL_REVIEW_NAME", "clinical-reviewer"),
			ResearchEndpoint:        utils.GetEnvString("MODEL_RESEARCH_ENDPOINT", "http://localhost:9103"),
			ResearchName:            utils.GetEnvString("MODEL_RESEARCH_NAME", "evidence-research"),
			RequestTimeoutInSeconds: utils.GetEnvInt("MODEL_REQUEST_TIMEOUT_IN_SECONDS", 60),
			RequestsPerSecond:       utils.GetEnvFloat("MODEL_REQUESTS_PER_SECOND", 2),
			RequestBurst:            utils.GetEnvInt("MODEL_REQUEST_BURST", 4),
		},
		Queue: Queue{
			LabResultConcurrency: utils.GetEnvInt("QUEUE_LAB_RESULT_CONCURRENCY", constvars.LabResultWorkerConcurrency),
			AlertConcurrency:     utils.GetEnvInt("QUEUE_ALERT_CONCURRENCY", constvars.AlertWorkerConcurrency),
			AnalysisConcurrency:  utils.GetEnvInt("QUEUE_ANALYSIS_CONCURRENCY", constvars.AnalysisWorkerConcurrency),
			Prefetch:             utils.GetEnvInt("QUEUE_PREFETCH", constvars.LabResultWorkerConcurrency),
		},
		Directory: Directory{
			BaseUrl: utils.GetEnvString("DIRECTORY_BASE_URL", "http://localhost:9201"),
		},
		Dashboard: Dashboard{
			BaseUrl: utils.GetEnvString("DASHBOARD_BASE_URL", "http://localhost:9202"),
		},
	}
}

// parseAPIKeyHashes reads "labSystem:bcryptHash" pairs joined by commas.
func parseAPIKeyHashes(raw string) map[string]string {
	hashes := make(map[string]string)
	if raw == "" {
		return hashes
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 {
			hashes[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return hashes
}
