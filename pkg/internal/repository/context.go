package repository

import "context"

type actorKey struct{}

// DefaultActor 未识别到调用者时写入 created_by / updated_by 的值.
const DefaultActor = "0"

// WithActor 把当前操作者写入 context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom 读取当前操作者，未设置时返回 DefaultActor.
func ActorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}

	return DefaultActor
}
