package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	recordsAccepted     atomic.Int64
	recordsRejected     atomic.Int64
	documentsParsed     atomic.Int64
	documentCacheHits   atomic.Int64
	parseFailures       atomic.Int64
	labResultsExtracted atomic.Int64
	allergensExtracted  atomic.Int64
	notesRedacted       atomic.Int64
	deliveryFailures    atomic.Int64
	parseMicros         atomic.Int64
)

// ObserveIngest counts a submission at the ingestion edge.
func ObserveIngest(accepted bool) {
	if accepted {
		recordsAccepted.Add(1)
		return
	}
	recordsRejected.Add(1)
}

// ObserveParse records one pipeline run and the size of its output.
func ObserveParse(elapsed time.Duration, labs, allergens int) {
	documentsParsed.Add(1)
	labResultsExtracted.Add(int64(labs))
	allergensExtracted.Add(int64(allergens))
	parseMicros.Add(elapsed.Microseconds())
}

func ObserveCacheHit()        { documentCacheHits.Add(1) }
func ObserveParseFailure()    { parseFailures.Add(1) }
func ObserveRedactions(n int) { notesRedacted.Add(int64(n)) }
func ObserveDeliveryFailure() { deliveryFailures.Add(1) }

type sample struct {
	name, help, kind string
	value            func() int64
}

var samples = []sample{
	{"medrecords_ingest_accepted_total", "Record texts accepted for parsing.", "counter", recordsAccepted.Load},
	{"medrecords_ingest_rejected_total", "Record texts rejected by validation.", "counter", recordsRejected.Load},
	{"medrecords_documents_parsed_total", "Documents produced by the parsing pipeline.", "counter", documentsParsed.Load},
	{"medrecords_document_cache_hits_total", "Requests answered from the document cache.", "counter", documentCacheHits.Load},
	{"medrecords_parse_failures_total", "Parse requests that failed before a document was stored.", "counter", parseFailures.Load},
	{"medrecords_lab_results_extracted_total", "Lab results across all parsed documents.", "counter", labResultsExtracted.Load},
	{"medrecords_allergens_extracted_total", "Allergen results across all parsed documents.", "counter", allergensExtracted.Load},
	{"medrecords_note_fields_redacted_total", "Clinical note fields changed by DLP masking.", "counter", notesRedacted.Load},
	{"medrecords_delivery_failures_total", "Documents that could not be delivered downstream.", "counter", deliveryFailures.Load},
	{"medrecords_parse_duration_microseconds_total", "Cumulative time spent in the parsing pipeline.", "counter", parseMicros.Load},
}

// Export writes every metric in the Prometheus text format.
func Export(w io.Writer) {
	for _, s := range samples {
		fmt.Fprintf(w, "# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", s.name, s.kind)
		fmt.Fprintf(w, "%s %d\n", s.name, s.value())
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	Export(w)
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WritePrometheus(w)
	}
}
