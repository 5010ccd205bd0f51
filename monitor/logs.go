package monitor

import (
	"bufio"
	"net/http"
	"os"
	"strconv"

	"grants-management-api/config"

	"github.com/gin-gonic/gin"
)

const (
	defaultTailLines = 200
	maxTailLines     = 5000
)

// TailLines returns the last n lines of the file at path.
func TailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[1:], scanner.Text())
			continue
		}
		ring = append(ring, scanner.Text())
	}
	return ring, scanner.Err()
}

// LogsHandler serves the tail of the application log. Mount it behind
// admin auth.
func LogsHandler(path string) gin.HandlerFunc {
	if path == "" {
		path = config.LogFilePath()
	}
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.DefaultQuery("lines", strconv.Itoa(defaultTailLines)))
		if err != nil || n <= 0 {
			n = defaultTailLines
		}
		if n > maxTailLines {
			n = maxTailLines
		}

		lines, err := TailLines(path, n)
		if err != nil {
			config.LogError("monitor", "LogsHandler", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unable to read log"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "lines": lines})
	}
}
