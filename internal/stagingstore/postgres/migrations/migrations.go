// Package migrations embeds the staging store's SQL schema migrations so
// they ship inside the uploader binary instead of as loose files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
