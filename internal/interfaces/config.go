package interfaces

// Config is implemented by every components.*ConfigImpl. Load reads the
// environment, SetDefaults fills what was left unset and Validate reports the
// first invalid field.
type Config interface {
	Load()
	SetDefaults()
	Validate() error
}
