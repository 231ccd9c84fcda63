package iox

import "os"

// Suffix of files that are still being written. A crash leaves these behind, never a truncated final file.
const PartialSuffix = ".partial"

// WriteFileAtomic is os.WriteFile, but readers never observe a half written file
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp := filename + PartialSuffix
	if err := os.WriteFile(tmp, data, perm); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
