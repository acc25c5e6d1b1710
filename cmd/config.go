package cmd

import "time"

const (
	// DEF_POLL_INTERVAL is how often progress bars sample load statuses.
	DEF_POLL_INTERVAL = 100 * time.Millisecond
	// DEF_MANIFEST_TIMEOUT bounds the wait for the manifest bundle.
	DEF_MANIFEST_TIMEOUT = 2 * time.Minute
)

const DESCRIPTION = `
WarpBundle loads content bundles for a platform from a build folder,
a streaming folder, a local bundle server or a remote origin. Bundles
are fetched with their dependencies under a fixed transfer budget and
failed transfers are retried.
`

const (
	LoadDescription = `The load command reads the platform manifest and then
loads every named bundle together with its dependencies,
showing one progress bar per bundle.

Example:
        warpbundle load ui levels.2x
                    OR
        warpbundle load --target remote-server --remote-url https://cdn.domain.com/game/ ui

`
	GetDescription = `The get command loads a bundle and writes one of its
assets to stdout or to the file given with -o. Use --list
to print the bundle's assets and their sizes instead.

Example:
        warpbundle get ui menu.yaml
        warpbundle get -o menu.yaml ui menu.yaml
        warpbundle get --list ui

`
	DepsDescription = `The deps command prints the bundles a load of the given
bundle would fetch, dependencies first, after variant
remapping.

Example:
        warpbundle deps ui

`
	ServeDescription = `The serve command serves the platform's bundles from the
bundles folder over HTTP, for use with the local-server
target.

Example:
        warpbundle serve --listen 127.0.0.1:7888

`
)
