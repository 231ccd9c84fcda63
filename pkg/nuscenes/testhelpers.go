package nuscenes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmharper/cimg/v2"
)

// TestScene describes one scene of a synthetic dataset written by WriteTestDataset
type TestScene struct {
	Name        string
	Description string
	NumSamples  int
	NoCamera    bool // Omit the CAM_FRONT captures, leaving only LIDAR_TOP
}

// TestDatasetParams controls the synthetic dataset
type TestDatasetParams struct {
	Version     string // Defaults to "v1.0-mini"
	ImageWidth  int    // Defaults to 320
	ImageHeight int    // Defaults to 180
	Scenes      []TestScene
}

// The camera rotation that maps camera axes (x right, y down, z forward) onto
// vehicle axes (x forward, y left, z up), as on the real CAM_FRONT.
var testCameraRotation = []float64{0.5, -0.5, 0.5, -0.5}

// WriteTestDataset writes a tiny but complete set of nuScenes tables into root/version,
// plus a solid-color JPEG for every CAM_FRONT capture.
// Every sample has one CAM_FRONT keyframe, one LIDAR_TOP keyframe, and two annotations:
// a truck ahead of the vehicle (visible), and a car behind it (not visible to CAM_FRONT).
func WriteTestDataset(root string, params TestDatasetParams) error {
	if params.Version == "" {
		params.Version = "v1.0-mini"
	}
	if params.ImageWidth == 0 {
		params.ImageWidth = 320
	}
	if params.ImageHeight == 0 {
		params.ImageHeight = 180
	}
	w, h := params.ImageWidth, params.ImageHeight
	focal := float64(w) / 2

	tables := map[string]any{}
	tables["sensor"] = []Sensor{
		{Token: "sensor-cam-front", Channel: ChannelCamFront, Modality: ModalityCamera},
		{Token: "sensor-lidar-top", Channel: "LIDAR_TOP", Modality: ModalityLidar},
	}
	tables["calibrated_sensor"] = []CalibratedSensor{
		{
			Token:       "cs-cam-front",
			SensorToken: "sensor-cam-front",
			Translation: []float64{1.7, 0, 1.5},
			Rotation:    testCameraRotation,
			CameraIntrinsic: [][]float64{
				{focal, 0, float64(w) / 2},
				{0, focal, float64(h) / 2},
				{0, 0, 1},
			},
		},
		{
			Token:           "cs-lidar-top",
			SensorToken:     "sensor-lidar-top",
			Translation:     []float64{0.9, 0, 1.8},
			Rotation:        []float64{1, 0, 0, 0},
			CameraIntrinsic: [][]float64{},
		},
	}
	tables["category"] = []Category{
		{Token: "cat-truck", Name: "vehicle.truck"},
		{Token: "cat-car", Name: "vehicle.car"},
	}

	scenes := []Scene{}
	samples := []Sample{}
	sampleData := []SampleData{}
	poses := []EgoPose{}
	instances := []Instance{}
	annotations := []SampleAnnotation{}

	imageDir := filepath.Join(root, "samples", ChannelCamFront)
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return err
	}

	for iscene, ts := range params.Scenes {
		sceneToken := fmt.Sprintf("scene-token-%03d", iscene)
		sampleToken := func(i int) string {
			if i < 0 || i >= ts.NumSamples {
				return ""
			}
			return fmt.Sprintf("%v-sample-%03d", sceneToken, i)
		}
		truck := fmt.Sprintf("%v-inst-truck", sceneToken)
		car := fmt.Sprintf("%v-inst-car", sceneToken)
		instances = append(instances,
			Instance{Token: truck, CategoryToken: "cat-truck"},
			Instance{Token: car, CategoryToken: "cat-car"},
		)
		scenes = append(scenes, Scene{
			Token:            sceneToken,
			LogToken:         "log-0",
			NbrSamples:       ts.NumSamples,
			FirstSampleToken: sampleToken(0),
			LastSampleToken:  sampleToken(ts.NumSamples - 1),
			Name:             ts.Name,
			Description:      ts.Description,
		})
		for i := 0; i < ts.NumSamples; i++ {
			stamp := int64(1_500_000_000_000_000 + iscene*100_000_000 + i*500_000)
			poseToken := fmt.Sprintf("%v-pose", sampleToken(i))
			poses = append(poses, EgoPose{
				Token:       poseToken,
				Timestamp:   stamp,
				Translation: []float64{float64(i), 0, 0},
				Rotation:    []float64{1, 0, 0, 0},
			})
			samples = append(samples, Sample{
				Token:      sampleToken(i),
				Timestamp:  stamp,
				Prev:       sampleToken(i - 1),
				Next:       sampleToken(i + 1),
				SceneToken: sceneToken,
			})
			camToken := fmt.Sprintf("%v-cam", sampleToken(i))
			camFile := filepath.Join("samples", ChannelCamFront, camToken+".jpg")
			if !ts.NoCamera {
				sampleData = append(sampleData, SampleData{
					Token:                 camToken,
					SampleToken:           sampleToken(i),
					EgoPoseToken:          poseToken,
					CalibratedSensorToken: "cs-cam-front",
					Filename:              camFile,
					FileFormat:            "jpg",
					Width:                 w,
					Height:                h,
					Timestamp:             stamp,
					IsKeyFrame:            true,
				})
				if err := writeTestImage(filepath.Join(root, camFile), w, h, uint8(40+i*10)); err != nil {
					return err
				}
			}
			sampleData = append(sampleData,
				SampleData{
					Token:                 fmt.Sprintf("%v-lidar", sampleToken(i)),
					SampleToken:           sampleToken(i),
					EgoPoseToken:          poseToken,
					CalibratedSensorToken: "cs-lidar-top",
					Filename:              filepath.Join("samples", "LIDAR_TOP", sampleToken(i)+".pcd.bin"),
					FileFormat:            "pcd",
					Timestamp:             stamp,
					IsKeyFrame:            true,
				},
			)
			annotations = append(annotations,
				SampleAnnotation{
					Token:         fmt.Sprintf("%v-ann-truck", sampleToken(i)),
					SampleToken:   sampleToken(i),
					InstanceToken: truck,
					Translation:   []float64{float64(i) + 15, 0.5, 1.2},
					Size:          []float64{2.5, 8, 3},
					Rotation:      []float64{1, 0, 0, 0},
				},
				SampleAnnotation{
					Token:         fmt.Sprintf("%v-ann-car", sampleToken(i)),
					SampleToken:   sampleToken(i),
					InstanceToken: car,
					Translation:   []float64{float64(i) - 20, 0, 0.8},
					Size:          []float64{1.9, 4.5, 1.6},
					Rotation:      []float64{1, 0, 0, 0},
				},
			)
		}
	}
	tables["scene"] = scenes
	tables["sample"] = samples
	tables["sample_data"] = sampleData
	tables["ego_pose"] = poses
	tables["instance"] = instances
	tables["sample_annotation"] = annotations

	tableDir := filepath.Join(root, params.Version)
	if err := os.MkdirAll(tableDir, 0755); err != nil {
		return err
	}
	for name, records := range tables {
		raw, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(tableDir, name+".json"), raw, 0644); err != nil {
			return err
		}
	}
	return nil
}

func writeTestImage(filename string, width, height int, shade uint8) error {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		row := img.Pixels[y*img.Stride : y*img.Stride+width*3]
		for x := 0; x < width; x++ {
			row[x*3] = shade
			row[x*3+1] = uint8(x * 255 / width)
			row[x*3+2] = uint8(y * 255 / height)
		}
	}
	return img.WriteJPEG(filename, cimg.MakeCompressParams(cimg.Sampling444, 95, 0), 0644)
}
