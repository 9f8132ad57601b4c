package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for internal consistency. Errors name
// the offending key so the operator can fix the file directly.
func (c *Config) Validate() error {
	if err := c.validateAgents(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateAgents() error {
	seen := make(map[string]struct{}, len(c.Agents))
	for i := range c.Agents {
		agent := &c.Agents[i]
		if agent.Name == "" {
			return fmt.Errorf("agents[%d].name must be set", i)
		}
		key := strings.ToLower(agent.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("agents: duplicate name %q", agent.Name)
		}
		seen[key] = struct{}{}
		if strings.TrimSpace(agent.URL) == "" {
			return fmt.Errorf("agents[%s].url must be set", agent.Name)
		}
	}
	return nil
}

func (c *Config) validateSources() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		source := &c.Sources[i]
		if source.Name == "" {
			return fmt.Errorf("sources[%d].name must be set", i)
		}
		key := strings.ToLower(source.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("sources: duplicate name %q", source.Name)
		}
		seen[key] = struct{}{}

		switch source.Kind {
		case SourceFeed:
			if strings.TrimSpace(source.FeedURL) == "" {
				return fmt.Errorf("sources[%s].feed_url must be set for kind %q", source.Name, SourceFeed)
			}
		case SourceListing:
			if strings.TrimSpace(source.ListingURL) == "" {
				return fmt.Errorf("sources[%s].listing_url must be set for kind %q", source.Name, SourceListing)
			}
			if strings.TrimSpace(source.SiteRules) == "" {
				return fmt.Errorf("sources[%s].site_rules must be set for kind %q", source.Name, SourceListing)
			}
		default:
			return fmt.Errorf("sources[%s].kind must be %q or %q, got %q", source.Name, SourceFeed, SourceListing, source.Kind)
		}

		switch source.Action {
		case ActionDownload:
			if source.Agent == "" {
				return fmt.Errorf("sources[%s].agent must reference a configured agent for action %q", source.Name, ActionDownload)
			}
			if _, ok := c.AgentByName(source.Agent); !ok {
				return fmt.Errorf("sources[%s].agent %q is not a configured agent", source.Name, source.Agent)
			}
		case ActionCatalog:
		default:
			return fmt.Errorf("sources[%s].action must be %q or %q, got %q", source.Name, ActionDownload, ActionCatalog, source.Action)
		}

		for j := range source.Rules {
			rule := &source.Rules[j]
			if rule.AgentName != "" {
				if _, ok := c.AgentByName(rule.AgentName); !ok {
					return fmt.Errorf("sources[%s].rules[%d].qbitname %q is not a configured agent", source.Name, j, rule.AgentName)
				}
			}
		}
	}
	return nil
}
