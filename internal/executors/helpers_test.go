package executors

import "context"

func ctxBG() context.Context { return context.Background() }
