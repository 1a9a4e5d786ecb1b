// Package fileops holds small filesystem helpers: path validation for paths
// that arrive from tool arguments, and atomic writes for configuration files.
//
// Validate user supplied paths before joining them to a repository root:
//
//	if err := fileops.ValidateRelativePath(rel); err != nil {
//	    return err
//	}
//	full := filepath.Join(root, rel)
//	if err := fileops.ValidateWithinDirectory(full, root); err != nil {
//	    return err
//	}
package fileops
