package ledger

// Config is the claim ledger configuration.
type Config struct {
	// DBPath is the path of the ledger database
	DBPath string `mapstructure:"DBPath"`
}
