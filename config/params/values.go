package params

const (
	Mainnet ConfigName = iota
	Minimal
)

// ConfigNames provides network configuration names.
var ConfigNames = map[ConfigName]string{
	Mainnet: "mainnet",
	Minimal: "minimal",
}

// ConfigName enum describes the type of known network in use.
type ConfigName int

func (n ConfigName) String() string {
	s, ok := ConfigNames[n]
	if !ok {
		return "undefined"
	}
	return s
}
