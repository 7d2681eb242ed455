package config

const (
	Version        = "1.0.0"
	AppName        = "toolscan"
	DbFilename     = "toolscan.db"
	LogFilename    = "toolscan.log"
	DefaultApiPort = "7498"
	DefaultAnchor  = "reader"
)
