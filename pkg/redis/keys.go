package redis

import "strings"

// Every key and channel the backend touches lives under this namespace so a
// shared Redis can be inspected with a single SCAN pattern.
const keyNamespace = "ts"

const (
	lockPrefix      = "lock"
	sessionPrefix   = "session"
	changesPrefix   = "changes"
	rateLimitPrefix = "rate_limit"
)

// CartKey namespaces a cart key (e.g. "cart:12") under its organization.
func (c *Client) CartKey(organizationID, cartKey string) string {
	return joinKey(organizationID, cartKey)
}

func (c *Client) LockKey(parts ...string) string {
	return joinKey(append([]string{lockPrefix}, parts...)...)
}

// AccessSessionKey is keyed by the access token's jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return joinKey(sessionPrefix, "access", accessID)
}

// ChangeChannel names the pub/sub channel carrying row changes for one table.
func (c *Client) ChangeChannel(table string) string {
	return joinKey(changesPrefix, table)
}

func (c *Client) RateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

// joinKey drops blank segments so an unknown organization never yields "ts::".
func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
