package auth

import "context"

type claimContextKey struct{}

// ContextWithClaim stores a verified claim for downstream handlers.
func ContextWithClaim(ctx context.Context, claim *Claim) context.Context {
	return context.WithValue(ctx, claimContextKey{}, claim)
}

func ClaimFromContext(ctx context.Context) (*Claim, bool) {
	claim, ok := ctx.Value(claimContextKey{}).(*Claim)
	return claim, ok && claim != nil
}
