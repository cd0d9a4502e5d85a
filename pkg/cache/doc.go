// Package cache stores catalog page responses in Redis for the lifetime of
// one browsing session.
//
// Keys are namespaced by session ID so a session never reads another
// session's pages, and PurgeSession drops everything a session wrote when
// it ends. Entries expire according to the response's Cache-Control
// max-age or Expires header, falling back to DefaultTTL. Stored ETag and
// Last-Modified values drive conditional revalidation: a 304 answer
// refreshes the entry's TTL and serves the cached body.
package cache
