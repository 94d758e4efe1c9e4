package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/reminder"
)

// templatesFile es el formato YAML de los textos de mensajes.
type templatesFile struct {
	Reminder          string `yaml:"reminder"`
	EscalationSubject string `yaml:"escalation_subject"`
	Escalation        string `yaml:"escalation"`
	ReportSubject     string `yaml:"report_subject"`
	Report            string `yaml:"report"`
}

// LoadTemplates carga los textos de mensajes desde un YAML. Sin archivo se
// devuelven strings vacíos y el engine usa sus defaults; un YAML inválido sí
// es error.
func LoadTemplates(configPath string) (reminder.TemplateStrings, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/templates.yaml",
			"./configs/templates.yaml",
		}
		if wd, err := os.Getwd(); err == nil {
			paths = append(paths, filepath.Join(wd, "configs", "templates.yaml"))
		}
	}

	var data []byte
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data = b
			break
		}
	}

	if data == nil {
		return reminder.TemplateStrings{}, nil
	}

	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return reminder.TemplateStrings{}, fmt.Errorf("failed to parse templates yaml: %w", err)
	}

	return reminder.TemplateStrings{
		Reminder:          f.Reminder,
		EscalationSubject: f.EscalationSubject,
		Escalation:        f.Escalation,
		ReportSubject:     f.ReportSubject,
		Report:            f.Report,
	}, nil
}
