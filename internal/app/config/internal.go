package config

type InternalConfig struct {
	App       App
	JWT       JWT
	Models    Models
	Queue     Queue
	Directory Directory
	Dashboard Dashboard
}

type App struct {
	Env                      string
	Port                     string
	Version                  string
	Timezone                 string
	EndpointPrefix           string
	MaxRequests              int
	ShutdownTimeoutInSeconds int
	// IngestAPIKeyHashes maps a lab-system label to the bcrypt hash of its
	// ingest API key.
	IngestAPIKeyHashes map[string]string
}

type JWT struct {
	Secret        string
	ExpTimeInHour int
}

// Models configures the three reasoning-engine endpoints of the consensus
// pipeline. Primary also serves revision; Review also serves graphics
// synthesis; Research serves gap research.
type Models struct {
	PrimaryEndpoint         string
	PrimaryName             string
	ReviewEndpoint          string
	ReviewName              string
	ResearchEndpoint        string
	ResearchName            string
	RequestTimeoutInSeconds int
	RequestsPerSecond       float64
	RequestBurst            int
}

type Queue struct {
	LabResultConcurrency int
	AlertConcurrency     int
	AnalysisConcurrency  int
	Prefetch             int
}

// Directory is the external patient/physician directory collaborator.
type Directory struct {
	BaseUrl string
}

// Dashboard is the out-of-scope dashboard renderer notified on fresh data.
type Dashboard struct {
	BaseUrl string
}
