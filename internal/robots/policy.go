package robots

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

// PolicyFile is one host's parsed robots.txt, kept close to the wire
// format: agent groups with their raw path patterns, plus any sitemap
// lines. Decision making never reads a PolicyFile directly; it is first
// resolved against this crawl's user agent into hostRules.
type PolicyFile struct {
	Host     string
	Sitemaps []string
	Groups   []AgentGroup
}

// AgentGroup is one user-agent block: the agents it names and the
// allow/disallow patterns (and optional crawl-delay) that apply to them.
type AgentGroup struct {
	Agents     []string
	Allows     []string
	Disallows  []string
	CrawlDelay *time.Duration
}

// hasRules reports whether the group carries anything beyond its agent
// names.
func (g AgentGroup) hasRules() bool {
	return len(g.Allows) > 0 || len(g.Disallows) > 0 || g.CrawlDelay != nil
}

// ParsePolicy parses robots.txt content fetched from host. The parser is
// forgiving: comments and unparsable lines are skipped, consecutive
// user-agent lines share one group, and allow/disallow lines appearing
// before any user-agent line are collected into a leading wildcard
// group.
func ParsePolicy(content, host string) PolicyFile {
	file := PolicyFile{Host: host}

	var current *AgentGroup
	var headless AgentGroup

	flush := func() {
		if current != nil && (len(current.Agents) > 0 || current.hasRules()) {
			file.Groups = append(file.Groups, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		field, value, ok := splitDirective(scanner.Text())
		if !ok {
			continue
		}

		switch field {
		case "user-agent":
			if current != nil && current.hasRules() {
				flush()
			}
			if current == nil {
				current = &AgentGroup{}
			}
			current.Agents = append(current.Agents, value)

		case "allow":
			if current != nil {
				current.Allows = append(current.Allows, value)
			} else {
				headless.Allows = append(headless.Allows, value)
			}

		case "disallow":
			if current != nil {
				current.Disallows = append(current.Disallows, value)
			} else {
				headless.Disallows = append(headless.Disallows, value)
			}

		case "crawl-delay":
			if current != nil {
				var seconds float64
				if _, err := fmt.Sscanf(value, "%f", &seconds); err == nil && seconds >= 0 {
					d := time.Duration(seconds * float64(time.Second))
					current.CrawlDelay = &d
				}
			}

		case "sitemap":
			if value != "" {
				file.Sitemaps = append(file.Sitemaps, value)
			}
		}
	}
	flush()

	if len(headless.Allows) > 0 || len(headless.Disallows) > 0 {
		headless.Agents = []string{"*"}
		file.Groups = append([]AgentGroup{headless}, file.Groups...)
	}

	return file
}

// splitDirective strips the comment and whitespace from one robots.txt
// line and splits it into a lowercased field name and its value. ok is
// false for blank or malformed lines.
func splitDirective(line string) (field, value string, ok bool) {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(line[:idx])), strings.TrimSpace(line[idx+1:]), true
}

// resolveRules projects a PolicyFile onto this crawl's user agent: it
// picks the best-matching agent group (exact name, then longest name
// prefix, then the wildcard) and normalizes its patterns into the
// hostRules the evaluator consumes.
func resolveRules(file PolicyFile, userAgent string, fetchedAt time.Time) hostRules {
	rs := hostRules{
		host:      file.Host,
		agent:     userAgent,
		fetchedAt: fetchedAt,
		hasGroups: len(file.Groups) > 0,
	}

	group := bestGroupFor(file.Groups, userAgent)
	if group == nil {
		return rs
	}
	rs.matchedGroup = true

	for _, pattern := range group.Allows {
		if pattern != "" {
			rs.allows = append(rs.allows, normalizePattern(pattern))
		}
	}
	for _, pattern := range group.Disallows {
		if pattern != "" {
			rs.disallows = append(rs.disallows, normalizePattern(pattern))
		}
	}
	if group.CrawlDelay != nil {
		d := *group.CrawlDelay
		rs.crawlDelay = &d
	}
	return rs
}

// bestGroupFor selects the group governing agent: an exact
// (case-insensitive) agent name wins outright, otherwise the longest
// agent name that prefixes ours, otherwise the "*" group.
func bestGroupFor(groups []AgentGroup, agent string) *AgentGroup {
	agentLower := strings.ToLower(agent)

	var best *AgentGroup
	bestLen := 0
	for i := range groups {
		group := &groups[i]
		for _, name := range group.Agents {
			nameLower := strings.ToLower(name)
			if nameLower == agentLower {
				return group
			}
			if name == "*" {
				if best == nil {
					best = group
				}
				continue
			}
			if strings.HasPrefix(agentLower, nameLower) && len(nameLower) > bestLen {
				best = group
				bestLen = len(nameLower)
			}
		}
	}
	return best
}

// normalizePattern anchors a rule pattern at the path root.
func normalizePattern(pattern string) string {
	if pattern == "" {
		return "/"
	}
	if !strings.HasPrefix(pattern, "/") {
		return "/" + pattern
	}
	return pattern
}
