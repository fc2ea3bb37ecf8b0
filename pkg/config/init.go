package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# DittoCMIS Configuration File
#
# Every value can be overridden from the environment with the DITTOCMIS_
# prefix, e.g. DITTOCMIS_LOGGING_LEVEL=DEBUG or DITTOCMIS_METADATA_TYPE=sqlite.`

// InitConfig writes a sample configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := GenerateSample(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSample renders cfg as a commented YAML document.
func GenerateSample(cfg *Config) ([]byte, error) {
	var s sample

	root := s.mapping(
		s.section("logging", "Log output", s.mapping(
			s.field("level", "DEBUG, INFO, WARN or ERROR", cfg.Logging.Level),
			s.field("format", "text or json", cfg.Logging.Format),
			s.field("output", "stdout, stderr or a file path", cfg.Logging.Output),
		)),
		s.section("metadata", "Where folders and documents are stored", s.mapping(
			s.field("type", "memory, badger or sqlite", cfg.Metadata.Type),
			s.field("memory", "", cfg.Metadata.Memory),
			s.field("badger", "", cfg.Metadata.Badger),
			s.field("sqlite", "", cfg.Metadata.SQLite),
		)),
		s.section("content", "Where content streams are stored", s.mapping(
			s.field("type", "memory, filesystem or s3", cfg.Content.Type),
			s.field("max_content_size", "Largest accepted content stream in bytes, buffered in memory (-1 = unlimited)", cfg.Content.MaxContentSize),
			s.field("memory", "", cfg.Content.Memory),
			s.field("filesystem", "", cfg.Content.Filesystem),
			s.field("s3", "bucket is required when type is s3. requests_per_second and burst throttle requests", cfg.Content.S3),
		)),
		s.section("repository", "Repository identity and capabilities", s.mapping(
			s.field("id", "", cfg.Repository.ID),
			s.field("name", "", cfg.Repository.Name),
			s.field("description", "", cfg.Repository.Description),
			s.field("vendor_name", "", cfg.Repository.VendorName),
			s.field("product_name", "", cfg.Repository.ProductName),
			s.field("product_version", "", cfg.Repository.ProductVersion),
			s.field("root_folder_id", "Id of the root folder", cfg.Repository.RootFolderID),
			s.field("versioning", "Enables checkout and checkin", cfg.Repository.VersioningEnabled()),
			s.field("fulltext_indexed", "", cfg.Repository.FulltextIndexed),
		)),
		s.section("gc", "Deletes content no document references", s.mapping(
			s.field("enabled", "Run periodically with `dittocmis gc --watch`", cfg.GC.Enabled),
			s.field("interval", "", cfg.GC.Interval),
			s.field("batch_size", "", cfg.GC.BatchSize),
			s.field("dry_run", "Log orphans without deleting them", cfg.GC.DryRun),
			s.field("run_timeout", "", cfg.GC.RunTimeout),
			s.field("min_age", "Keep unreferenced content younger than this (negative = collect all)", cfg.GC.MinAge),
		)),
		s.section("metrics", "Prometheus endpoint", s.mapping(
			s.field("enabled", "", cfg.Metrics.Enabled),
			s.field("port", "", cfg.Metrics.Port),
		)),
	)
	if s.err != nil {
		return nil, fmt.Errorf("failed to render sample config: %w", s.err)
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: sampleHeader,
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}

	return buf.Bytes(), nil
}

// sample builds a yaml node tree, keeping the first encoding error.
type sample struct {
	err error
}

type pair struct {
	key   *yaml.Node
	value *yaml.Node
}

func (s *sample) mapping(pairs ...pair) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range pairs {
		n.Content = append(n.Content, p.key, p.value)
	}
	return n
}

func (s *sample) section(key, comment string, value *yaml.Node) pair {
	return pair{key: keyNode(key, comment), value: value}
}

func (s *sample) field(key, comment string, value any) pair {
	if d, ok := value.(time.Duration); ok {
		value = d.String()
	}

	n := &yaml.Node{}
	if err := n.Encode(value); err != nil && s.err == nil {
		s.err = fmt.Errorf("%s: %w", key, err)
	}
	return pair{key: keyNode(key, comment), value: n}
}

func keyNode(key, comment string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	if comment != "" {
		n.HeadComment = "# " + comment
	}
	return n
}
