package metadata

// crawlStats is the terminal summary of one completed crawl: aggregate
// counts and duration only, computed by the scheduler after the worker
// pool stops and recorded exactly once. It never feeds back into
// scheduling.
type crawlStats struct {
	totalPages  int
	totalErrors int
	totalAssets int
	durationMs  int64
}

// ArtifactKind classifies a recorded on-disk artifact for observability
// purposes only; it carries no semantics beyond a label in the log stream.
type ArtifactKind string

const (
	ArtifactAuditLog   ArtifactKind = "audit_log"
	ArtifactRun        ArtifactKind = "run"
	ArtifactPostings   ArtifactKind = "postings"
	ArtifactLexicon    ArtifactKind = "lexicon"
	ArtifactDocLengths ArtifactKind = "doc_lengths"
)

// ErrorCause is the closed, canonical failure classification every
// pipeline package maps its local errors onto, used exclusively for
// observability (logging, reporting). It never drives retry, abort, or
// continuation decisions — severity lives on the errors themselves —
// and a failure with no clean category uses CauseUnknown.
type ErrorCause int

// The canonical cause table. Crawl side: the fetcher's status-tag
// vocabulary maps onto CauseNetworkTimeout/DNS/SSL/Other (with
// CauseNetworkFailure as the unclassified transport bucket),
// CausePolicyDisallow covers robots denials and access-denial HTTP
// codes, CauseHTTPError covers audit-counted statuses >= 400, and
// CauseRobotsUnavailable marks an unobtainable robots.txt (treated as
// allow-all). Both sides share CauseParseError (bad HTML or TSV lines,
// skipped), CauseContentInvalid (fetched but unprocessable content),
// CauseStorageFailure (artifact persistence), and
// CauseInvariantViolation (internal consistency checks). Index side:
// CauseIndexCorruption is a block-length mismatch, bad magic, or
// truncation — fatal to the current operation. CauseConfigError flags
// invalid CLI arguments or configuration.
const (
	CauseUnknown ErrorCause = iota

	// Crawl side.
	CauseNetworkTimeout
	CauseNetworkDNS
	CauseNetworkSSL
	CauseNetworkOther
	CauseNetworkFailure
	CausePolicyDisallow
	CauseHTTPError
	CauseRobotsUnavailable

	// Shared.
	CauseParseError
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation

	// Index side.
	CauseIndexCorruption
	CauseConfigError
)

var errorCauseNames = map[ErrorCause]string{
	CauseUnknown:            "unknown",
	CauseNetworkTimeout:     "network_timeout",
	CauseNetworkDNS:         "network_dns",
	CauseNetworkSSL:         "network_ssl",
	CauseNetworkOther:       "network_other",
	CauseNetworkFailure:     "network_failure",
	CausePolicyDisallow:     "policy_disallow",
	CauseHTTPError:          "http_error",
	CauseRobotsUnavailable:  "robots_unavailable",
	CauseParseError:         "parse_error",
	CauseContentInvalid:     "content_invalid",
	CauseStorageFailure:     "storage_failure",
	CauseInvariantViolation: "invariant_violation",
	CauseIndexCorruption:    "index_corruption",
	CauseConfigError:        "config_error",
}

// String renders the cause's stable, package-agnostic label.
func (c ErrorCause) String() string {
	if name, ok := errorCauseNames[c]; ok {
		return name
	}
	return "unknown"
}

// Attribute is one extra key/value attached to a recorded event, on top
// of the event's fixed fields.
type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{Key: key, Value: val}
}

// AttributeKey names the attributes events actually attach: the URL or
// host involved, the crawl depth, where an artifact was written, and
// term counts on index-build artifacts.
type AttributeKey string

const (
	AttrURL       AttributeKey = "url"
	AttrHost      AttributeKey = "host"
	AttrDepth     AttributeKey = "depth"
	AttrWritePath AttributeKey = "write_path"
	AttrCount     AttributeKey = "count"
)
