package visualization

import "embed"

// templates holds the graph page rendered by RenderHTML and the server.
//
//go:embed templates/*
var templates embed.FS
