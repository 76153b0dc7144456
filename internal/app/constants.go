package app

const (
	Name           = "serialwifi"
	ConfigFilename = "config.json"
	DBFilename     = "transcript.db"
	LogFilename    = "serialwifi.log"
	WriterCapacity = 512
)
