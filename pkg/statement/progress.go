package statement

import "context"

// ProgressNotifier receives one call per status poll.
type ProgressNotifier interface {
	Notify(ctx context.Context, poll, maxPolls int, state State)
}

type progressKey struct{}

// WithProgressNotifier attaches n to ctx. Wait reports every poll to it.
func WithProgressNotifier(ctx context.Context, n ProgressNotifier) context.Context {
	return context.WithValue(ctx, progressKey{}, n)
}

func progressNotifier(ctx context.Context) ProgressNotifier {
	n, _ := ctx.Value(progressKey{}).(ProgressNotifier)
	return n
}
