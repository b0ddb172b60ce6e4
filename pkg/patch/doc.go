// Package patch provides helpers for working with a directory of staged, file-level patches.
//
// Each staged artifact is named after the repository path it targets, flattened into a single
// filename by the Codec (`src/app/main.py` becomes `src__app__main.py.patch`). The package
// exposes primitives to encode and decode those names, list a staging directory, preview the
// difference between an artifact and its target, and overwrite an existing target with the
// artifact's content. It never creates new files in the working copy.
package patch
