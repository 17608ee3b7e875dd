package printer

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line protocol between the supervisor and the worker subprocess. The worker
// emits exactly one readiness line at boot and one result line per job; the
// payload travels base64-encoded so the protocol stays line-oriented.
const (
	readyLine = "READY"
	jobPrefix = "PRINT "
	okPrefix  = "OK "
	errPrefix = "ERR "
)

// encodeJob frames rendered receipt bytes as a single protocol line.
func encodeJob(data []byte) string {
	return jobPrefix + base64.StdEncoding.EncodeToString(data)
}

// parseResult interprets one worker output line. ok is false for lines that
// are neither a success nor an error acknowledgement; those are diagnostic
// noise to be logged, not parsed.
func parseResult(line string) (n int, workerErr string, ok bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, okPrefix):
		v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, okPrefix)))
		if err != nil {
			return 0, "", false
		}
		return v, "", true
	case strings.HasPrefix(line, errPrefix):
		return 0, strings.TrimSpace(strings.TrimPrefix(line, errPrefix)), true
	default:
		return 0, "", false
	}
}

// ServeWorker runs the worker side of the protocol: announce readiness, then
// decode each job line, write the payload to the port and acknowledge with
// the byte count written. It returns when the input stream closes, which is
// how the supervisor shuts a worker down.
//
// The port stays open for the worker's whole lifetime. Closing it would tear
// down the RFCOMM channel underneath the OS, which is the exact platform
// quirk the persistent worker exists to avoid.
func ServeWorker(port io.Writer, in io.Reader, out io.Writer) error {
	if _, err := fmt.Fprintln(out, readyLine); err != nil {
		return fmt.Errorf("announce readiness: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, jobPrefix) {
			continue
		}
		payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, jobPrefix))
		if err != nil {
			fmt.Fprintf(out, "%sbad job encoding: %v\n", errPrefix, err)
			continue
		}
		n, err := port.Write(payload)
		if err != nil {
			fmt.Fprintf(out, "%s%v\n", errPrefix, err)
			continue
		}
		fmt.Fprintf(out, "%s%d\n", okPrefix, n)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read job stream: %w", err)
	}
	return nil
}
