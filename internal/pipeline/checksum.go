package pipeline

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
)

// fileMD5 calculates the MD5 hash of a file by streaming its contents
func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
