package clock

// Family is a widget backend that can realize a Clock.
type Family interface {
	Name() string
	Prepare(c *Clock) (Result, error)
	Configure(c *Clock, content string) (Result, error)
	Create(c *Clock) (Result, error)
	Destroy(c *Clock) (Result, error)
}

// FirstInstancePreparer is implemented by families that can pre-create an
// instance at boot.
type FirstInstancePreparer interface {
	PrepareFirstInstance(pkg string) error
}

// Resumer is implemented by families that react to the shell returning to
// the foreground.
type Resumer interface {
	OnResume()
}
