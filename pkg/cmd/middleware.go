package cmd

// Middleware decorates a command, for logging or metrics.
type Middleware func(Command) Command

// Apply wraps c with mws. The first middleware ends up outermost.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
