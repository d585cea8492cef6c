// Package templates renders the notification texts defined in catalog.yaml.
package templates

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Keys of the catalogue entries.
const (
	AppointmentConfirmation = "appointment_confirmation"
	PaymentReceived         = "payment_received"
	InspectionCompleted     = "inspection_completed"
	AppointmentReminder     = "appointment_reminder"
	AppointmentCancelled    = "appointment_cancelled"
)

//go:embed catalog.yaml
var catalogYAML []byte

type definition struct {
	Category string `yaml:"category"`
	Subject  string `yaml:"subject"`
	Body     string `yaml:"body"`
	SMS      string `yaml:"sms"`
}

type compiled struct {
	category string
	subject  *template.Template
	body     *template.Template
	sms      *template.Template
}

// Data carries the placeholder values of every template.
type Data struct {
	Name          string
	Registration  string
	When          string
	PaymentType   string
	Amount        string
	InvoiceNumber string
	Verdict       string
}

// Rendered is the text of one notification for every channel.
type Rendered struct {
	Category string
	Subject  string
	Body     string
	SMS      string
}

// Catalog holds the parsed templates.
type Catalog struct {
	entries map[string]compiled
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse builds a catalogue from YAML source.
func Parse(source []byte) (*Catalog, error) {
	var defs map[string]definition
	if err := yaml.Unmarshal(source, &defs); err != nil {
		return nil, fmt.Errorf("parse notification catalog: %w", err)
	}

	c := &Catalog{entries: make(map[string]compiled, len(defs))}
	for key, def := range defs {
		if def.Subject == "" || def.Body == "" {
			return nil, fmt.Errorf("template %s: subject and body are required", key)
		}
		entry := compiled{category: def.Category}
		var err error
		if entry.subject, err = template.New(key + ".subject").Parse(def.Subject); err != nil {
			return nil, fmt.Errorf("template %s subject: %w", key, err)
		}
		if entry.body, err = template.New(key + ".body").Parse(def.Body); err != nil {
			return nil, fmt.Errorf("template %s body: %w", key, err)
		}
		if def.SMS != "" {
			if entry.sms, err = template.New(key + ".sms").Parse(def.SMS); err != nil {
				return nil, fmt.Errorf("template %s sms: %w", key, err)
			}
		}
		c.entries[key] = entry
	}
	return c, nil
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Render executes the template named key with data. The SMS text falls back
// to the subject when the entry defines none.
func (c *Catalog) Render(key string, data Data) (Rendered, error) {
	entry, ok := c.entries[key]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown notification template %q", key)
	}

	subject, err := execute(entry.subject, data)
	if err != nil {
		return Rendered{}, err
	}
	body, err := execute(entry.body, data)
	if err != nil {
		return Rendered{}, err
	}
	out := Rendered{Category: entry.category, Subject: subject, Body: body, SMS: subject}
	if entry.sms != nil {
		if out.SMS, err = execute(entry.sms, data); err != nil {
			return Rendered{}, err
		}
	}
	return out, nil
}

func execute(tmpl *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
