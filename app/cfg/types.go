package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	Port              string
	SeedsFile         string
	WorkerCount       int
	SchedulerInterval int
	RefreshInterval   int
	FetchTimeout      int

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
