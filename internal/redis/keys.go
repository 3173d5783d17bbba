package redisx

import "fmt"

const ns = "pizzago:v1"

func KeySlotAvailability() string {
	return ns + ":slots:availability"
}

func KeyCatalog(onlyEnabled bool) string {
	if onlyEnabled {
		return ns + ":catalog:enabled"
	}
	return ns + ":catalog:all"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdempotency(scope, idemKey string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, scope, idemKey)
}

func ChannelKitchen() string {
	return ns + ":kitchen:changed"
}
