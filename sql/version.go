package sql

func Version() string {
	return "duet-0.3.0"
}
