package doctor

import (
	"bytes"
	"os"
)

// ScanForNulBytes returns the subset of paths whose contents contain a NUL
// byte. NUL bytes in source and config files are almost always accidental
// and silently break many tools, so pre-commit runs this over staged files.
// Unreadable paths are skipped.
func ScanForNulBytes(filePaths []string) []string {
	offendingPaths := []string{}
	for _, filePath := range filePaths {
		fileContents, readError := os.ReadFile(filePath)
		if readError != nil {
			continue
		}
		if bytes.IndexByte(fileContents, 0x00) >= 0 {
			offendingPaths = append(offendingPaths, filePath)
		}
	}
	return offendingPaths
}
