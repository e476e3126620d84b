package util

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"
)

var commaSeperatorRegexp = regexp.MustCompile(`\s*,\s*`)

// split a csv like line to values. "a, b, c" => [a,b,c].
// If str is empty string, return nil.
func SplitCsv(str string) []string {
	if str == "" {
		return nil
	}
	return commaSeperatorRegexp.Split(str, -1)
}

func Sha1(s []byte) string {
	h := sha1.New()
	h.Write(s)
	return hex.EncodeToString(h.Sum(nil))
}

func Now() int64 {
	return time.Now().Unix()
}

func FileExists(name string) bool {
	fileinfo, err := os.Stat(name)
	return err == nil && !fileinfo.IsDir()
}

func DirExists(name string) bool {
	fileinfo, err := os.Stat(name)
	return err == nil && fileinfo.IsDir()
}

func PrintJson(output io.Writer, value any) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	fmt.Fprintln(output, string(bytes))
	return nil
}
