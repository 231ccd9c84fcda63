package nuscenes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/scenereel/pkg/log"
)

var ErrNotFound = errors.New("Record not found")

// Catalog is a read-only, in-memory copy of the nuScenes tables that we need.
// After Open returns, a Catalog is safe to share between goroutines.
type Catalog struct {
	DataRoot string // Root of the dataset. Sample data filenames are relative to this.
	Version  string // eg v1.0-trainval

	// Scenes in table order
	Scenes []Scene

	scenes            map[string]*Scene
	samples           map[string]*Sample
	sampleData        map[string]*SampleData
	sensors           map[string]*Sensor
	calibratedSensors map[string]*CalibratedSensor
	egoPoses          map[string]*EgoPose
	instances         map[string]*Instance
	categories        map[string]*Category
	annotations       map[string]*SampleAnnotation
}

// Open loads the tables of 'version' from dataRoot/version/*.json
func Open(logger log.Log, dataRoot, version string) (*Catalog, error) {
	start := time.Now()
	tableDir := filepath.Join(dataRoot, version)
	if st, err := os.Stat(tableDir); err != nil {
		return nil, fmt.Errorf("Dataset tables not found at '%v': %w", tableDir, err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("Dataset table path '%v' is not a directory", tableDir)
	}
	logger.Infof("Loading dataset %v from '%v'", version, dataRoot)

	c := &Catalog{
		DataRoot: dataRoot,
		Version:  version,
	}
	var err error
	if c.Scenes, err = loadTable[Scene](tableDir, "scene"); err != nil {
		return nil, err
	}
	samples, err := loadTable[Sample](tableDir, "sample")
	if err != nil {
		return nil, err
	}
	sampleData, err := loadTable[SampleData](tableDir, "sample_data")
	if err != nil {
		return nil, err
	}
	sensors, err := loadTable[Sensor](tableDir, "sensor")
	if err != nil {
		return nil, err
	}
	calibrated, err := loadTable[CalibratedSensor](tableDir, "calibrated_sensor")
	if err != nil {
		return nil, err
	}
	poses, err := loadTable[EgoPose](tableDir, "ego_pose")
	if err != nil {
		return nil, err
	}
	instances, err := loadTable[Instance](tableDir, "instance")
	if err != nil {
		return nil, err
	}
	categories, err := loadTable[Category](tableDir, "category")
	if err != nil {
		return nil, err
	}
	annotations, err := loadTable[SampleAnnotation](tableDir, "sample_annotation")
	if err != nil {
		return nil, err
	}

	c.scenes = indexByToken(c.Scenes, func(s *Scene) string { return s.Token })
	c.samples = indexByToken(samples, func(s *Sample) string { return s.Token })
	c.sampleData = indexByToken(sampleData, func(s *SampleData) string { return s.Token })
	c.sensors = indexByToken(sensors, func(s *Sensor) string { return s.Token })
	c.calibratedSensors = indexByToken(calibrated, func(s *CalibratedSensor) string { return s.Token })
	c.egoPoses = indexByToken(poses, func(s *EgoPose) string { return s.Token })
	c.instances = indexByToken(instances, func(s *Instance) string { return s.Token })
	c.categories = indexByToken(categories, func(s *Category) string { return s.Token })
	c.annotations = indexByToken(annotations, func(s *SampleAnnotation) string { return s.Token })

	if err := c.buildReverseIndex(sampleData, annotations); err != nil {
		return nil, err
	}

	logger.Infof("Loaded %v scenes, %v samples, %v sample_data, %v annotations in %.1f seconds",
		len(c.Scenes), len(samples), len(sampleData), len(annotations), time.Since(start).Seconds())
	return c, nil
}

func loadTable[T any](tableDir, name string) ([]T, error) {
	filename := filepath.Join(tableDir, name+".json")
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading table %v: %w", name, err)
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("Error decoding table %v as JSON: %w", filename, err)
	}
	return records, nil
}

func indexByToken[T any](records []T, token func(*T) string) map[string]*T {
	m := make(map[string]*T, len(records))
	for i := range records {
		m[token(&records[i])] = &records[i]
	}
	return m
}

// Attach the derived fields that the raw tables don't carry directly:
// sample.Data, sample.Anns, sample_data modality/channel, and annotation category names.
func (c *Catalog) buildReverseIndex(sampleData []SampleData, annotations []SampleAnnotation) error {
	for i := range sampleData {
		sd := &sampleData[i]
		cs, ok := c.calibratedSensors[sd.CalibratedSensorToken]
		if !ok {
			return fmt.Errorf("sample_data %v references unknown calibrated_sensor %v", sd.Token, sd.CalibratedSensorToken)
		}
		sensor, ok := c.sensors[cs.SensorToken]
		if !ok {
			return fmt.Errorf("calibrated_sensor %v references unknown sensor %v", cs.Token, cs.SensorToken)
		}
		sd.SensorModality = sensor.Modality
		sd.Channel = sensor.Channel
		if sd.IsKeyFrame {
			sample, ok := c.samples[sd.SampleToken]
			if !ok {
				return fmt.Errorf("sample_data %v references unknown sample %v", sd.Token, sd.SampleToken)
			}
			if sample.Data == nil {
				sample.Data = map[string]string{}
			}
			sample.Data[sd.Channel] = sd.Token
		}
	}

	for i := range annotations {
		ann := &annotations[i]
		if inst, ok := c.instances[ann.InstanceToken]; ok {
			if cat, ok := c.categories[inst.CategoryToken]; ok {
				ann.CategoryName = cat.Name
			}
		}
		if sample, ok := c.samples[ann.SampleToken]; ok {
			sample.Anns = append(sample.Anns, ann.Token)
		}
	}
	return nil
}

func (c *Catalog) Scene(token string) (*Scene, error) {
	if s, ok := c.scenes[token]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: scene %v", ErrNotFound, token)
}

func (c *Catalog) Sample(token string) (*Sample, error) {
	if s, ok := c.samples[token]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: sample %v", ErrNotFound, token)
}

func (c *Catalog) SampleData(token string) (*SampleData, error) {
	if s, ok := c.sampleData[token]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: sample_data %v", ErrNotFound, token)
}

func (c *Catalog) SampleAnnotation(token string) (*SampleAnnotation, error) {
	if a, ok := c.annotations[token]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: sample_annotation %v", ErrNotFound, token)
}

// SceneByName returns the first scene with the given name
func (c *Catalog) SceneByName(name string) (*Scene, error) {
	for i := range c.Scenes {
		if c.Scenes[i].Name == name {
			return &c.Scenes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: scene named %v", ErrNotFound, name)
}
