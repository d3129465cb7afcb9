package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/August26/proxycheck-api/internal/model"
)

// PrintReport prints a human-readable table of one verification.
func PrintReport(w io.Writer, r model.VerificationReport) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	// header
	fmt.Fprintln(tw, "IP:PORT\tTYPE\tALIVE\tTCP\tTCP(ms)\tHTTP(ms)\tTRIES\tSTATUS")

	hostport := fmt.Sprintf("%s:%d", r.Parsed.IP, r.Parsed.Port)
	httpMs, tries, status := "-", "-", r.TCP.Message
	if r.HTTP != nil {
		httpMs = strconv.FormatInt(r.HTTP.LatencyMs, 10)
		tries = strconv.Itoa(r.HTTP.Tries)
		status = httpStatus(r.HTTP)
	}

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
		hostport,
		r.Type,
		boolToYN(r.Alive),
		boolToYN(r.TCP.Alive),
		r.TCP.LatencyMs,
		httpMs,
		tries,
		status,
	)

	tw.Flush()
}

func httpStatus(h *model.HTTPProbeResult) string {
	if h.StatusCode != nil {
		return strconv.Itoa(*h.StatusCode)
	}
	if h.Error != nil {
		return *h.Error
	}
	return "-"
}

func boolToYN(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// WriteFile writes the report to a file in json or csv format.
func WriteFile(path string, format string, r model.VerificationReport) error {
	switch format {
	case "json", "csv":
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if format == "json" {
		return WriteJSON(f, r)
	}
	return WriteCSV(f, r)
}

// WriteJSON writes the report exactly as the API returns it, indented.
func WriteJSON(w io.Writer, r model.VerificationReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes a header row and one row for the report.
func WriteCSV(w io.Writer, r model.VerificationReport) error {
	cw := csv.NewWriter(w)

	header := []string{
		"ip",
		"port",
		"type",
		"timeout_ms",
		"alive",
		"tcp_alive",
		"tcp_latency_ms",
		"tcp_message",
		"http_latency_ms",
		"http_tries",
		"http_status",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	httpMs, tries, status := "", "", ""
	if r.HTTP != nil {
		httpMs = strconv.FormatInt(r.HTTP.LatencyMs, 10)
		tries = strconv.Itoa(r.HTTP.Tries)
		status = httpStatus(r.HTTP)
	}
	row := []string{
		r.Parsed.IP,
		strconv.Itoa(r.Parsed.Port),
		string(r.Type),
		strconv.Itoa(r.TimeoutMs),
		boolToYN(r.Alive),
		boolToYN(r.TCP.Alive),
		strconv.FormatInt(r.TCP.LatencyMs, 10),
		r.TCP.Message,
		httpMs,
		tries,
		status,
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
