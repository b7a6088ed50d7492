// Package treesearch implements the bounded-depth directory search shared by the
// clean and bump commands.
//
// # Overview
//
// Search walks a directory tree looking for entries whose name matches a target
// name case-insensitively. Each match is handed to a caller-supplied Action and
// the directory that contained it is not descended any further. Directories that
// do not contain a match are descended until MaxDepth is exhausted.
//
// # Depth policy
//
// The root is depth 0. A directory at depth d that has no matching child pushes
// its sub-directories at depth d+1, but only when MaxDepth is 0 (unlimited) or
// d+1 <= MaxDepth. Because the check runs before listing the child, a search
// with MaxDepth k still lists directories at depth k, so a match can be found
// k+1 levels below the root:
//
//	root/            depth 0
//	  proj/          depth 1 (listed when MaxDepth >= 1)
//	    bin/         match found while listing proj/
//
// # Matching
//
// Names are compared after strings.ToLower. Any entry kind can match: the clean
// command targets directories, the bump command targets AssemblyInfo.cs files.
// The path passed to the Action keeps the entry's on-disk spelling.
//
// Only directories are descended. Symbolic links to directories are followed and
// visited paths are not de-duplicated, so a link cycle is only bounded by
// MaxDepth or by the operating system rejecting the resulting path.
//
// # Errors
//
// A directory that cannot be listed aborts the search with a *TraversalError.
// An Action failure aborts the search with an *ActionError. Neither is retried.
//
// # Usage
//
//	err := treesearch.Search(ctx, treesearch.Request{
//	    Root:     root,
//	    Target:   "bin",
//	    MaxDepth: 1,
//	    Action:   remover.Remove,
//	})
package treesearch
