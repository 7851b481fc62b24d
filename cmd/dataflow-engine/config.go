package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// runtimeConfig is the host process's operational configuration, loaded by
// viper from flags, environment variables (DATAFLOW_ prefix), and built-in
// defaults; no config file is read.
type runtimeConfig struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	LogLevel      string `mapstructure:"log_level"`
	PipelineFile  string `mapstructure:"pipeline_file"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
	LFUCapacity   int    `mapstructure:"lfu_capacity"`
}

func loadRuntimeConfig(v *viper.Viper) (runtimeConfig, error) {
	v.SetEnvPrefix("dataflow")
	v.AutomaticEnv()
	v.SetDefault("listen_addr", ":8085")
	v.SetDefault("log_level", "info")
	v.SetDefault("pipeline_file", "config/pipeline.yaml")
	v.SetDefault("checkpoint_dir", "./.dataflow-checkpoints")
	v.SetDefault("lfu_capacity", 64)

	var cfg runtimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// stepSpec describes one registered step's operational metadata, as read
// from a pipeline definition file; the step's actual body is resolved
// against the built-in demo registry by name (bootstrap.go), since step
// logic is Go code, not data.
type stepSpec struct {
	Name         string `yaml:"name"`
	ChunkSize    int    `yaml:"chunk_size"`
	ExistsPolicy string `yaml:"exists_policy"`
}

type checkpointSpec struct {
	Dir         string `yaml:"dir"`
	LFUCapacity int    `yaml:"lfu_capacity"`
}

// pipelineSpec is the shape of a pipeline definition file such as
// config/pipeline.yaml.
type pipelineSpec struct {
	Name          string         `yaml:"name"`
	Mode          string         `yaml:"mode"`
	ChunkStrategy string         `yaml:"chunk_strategy"`
	Checkpoint    checkpointSpec `yaml:"checkpoint"`
	Steps         []stepSpec     `yaml:"steps"`
}

func loadPipelineSpec(path string) (pipelineSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pipelineSpec{}, fmt.Errorf("pipeline spec: %w", err)
	}
	var spec pipelineSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return pipelineSpec{}, fmt.Errorf("pipeline spec: %w", err)
	}
	return spec, nil
}
