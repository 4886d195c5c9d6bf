// Copyright © 2024 The Mago authors

// Package docs embeds the reference guides shown by "mago help <topic>".
package docs

import _ "embed"

//go:embed configuration.md
var ConfigurationGuide string

//go:embed suppressing-issues.md
var SuppressionGuide string
