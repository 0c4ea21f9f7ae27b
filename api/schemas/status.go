package schemas

import (
	"fmt"
	"strings"
)

// LibraryStatus is an ordered severity. It classifies a single LifecycleIssue and
// also the aggregate fitness of a library, which is the maximum across its issues.
type LibraryStatus int

const (
	StatusUsable LibraryStatus = iota
	StatusFlawed
	StatusUnusable
)

var statusNames = map[LibraryStatus]string{
	StatusUsable:   "USABLE",
	StatusFlawed:   "FLAWED",
	StatusUnusable: "UNUSABLE",
}

func (s LibraryStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("LibraryStatus(%d)", int(s))
}

// MarshalText renders the status by name so reports and the store stay readable.
func (s LibraryStatus) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown library status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name, case-insensitively.
func (s *LibraryStatus) UnmarshalText(text []byte) error {
	want := strings.ToUpper(strings.TrimSpace(string(text)))
	for status, name := range statusNames {
		if name == want {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown library status %q", string(text))
}

// LifecycleIssue is an immutable problem record produced by a lifecycle stage.
type LifecycleIssue struct {
	Message  string        `json:"message" yaml:"message"`
	Severity LibraryStatus `json:"severity" yaml:"severity"`
}

// NewIssue is a small constructor that keeps call sites terse.
func NewIssue(severity LibraryStatus, format string, args ...any) LifecycleIssue {
	return LifecycleIssue{Message: fmt.Sprintf(format, args...), Severity: severity}
}

func (i LifecycleIssue) String() string {
	return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
}

// AggregateStatus returns the maximum severity among the issues, USABLE when empty.
func AggregateStatus(issues []LifecycleIssue) LibraryStatus {
	status := StatusUsable
	for _, issue := range issues {
		if issue.Severity > status {
			status = issue.Severity
		}
	}
	return status
}

// HasUnusable reports whether any issue forbids loading.
func HasUnusable(issues []LifecycleIssue) bool {
	return AggregateStatus(issues) >= StatusUnusable
}
