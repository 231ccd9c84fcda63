package nuscenes

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cyclopcam/scenereel/pkg/geom"
)

var ErrMissingCalibration = errors.New("Missing calibration")

// CameraView is everything needed to draw the annotations of one camera image
type CameraView struct {
	ImagePath string
	Width     int
	Height    int
	Boxes     []geom.Box // In the camera frame, filtered by visibility
	Intrinsic geom.Intrinsic
}

func vec3(v []float64, what string) (geom.Vec3, error) {
	if len(v) != 3 {
		return geom.Vec3{}, fmt.Errorf("%w: %v has %v components, expected 3", ErrMissingCalibration, what, len(v))
	}
	return geom.Vec3{v[0], v[1], v[2]}, nil
}

func quaternion(v []float64, what string) (geom.Quaternion, error) {
	if len(v) != 4 {
		return geom.Quaternion{}, fmt.Errorf("%w: %v has %v components, expected 4", ErrMissingCalibration, what, len(v))
	}
	return geom.Quaternion{v[0], v[1], v[2], v[3]}, nil
}

// BoxFromAnnotation builds a box in global coordinates
func BoxFromAnnotation(ann *SampleAnnotation) (geom.Box, error) {
	center, err := vec3(ann.Translation, "annotation translation")
	if err != nil {
		return geom.Box{}, err
	}
	wlh, err := vec3(ann.Size, "annotation size")
	if err != nil {
		return geom.Box{}, err
	}
	rot, err := quaternion(ann.Rotation, "annotation rotation")
	if err != nil {
		return geom.Box{}, err
	}
	return geom.NewBox(ann.Token, ann.CategoryName, wlh, center, rot)
}

// Boxes returns the annotation boxes of a sample_data, in global coordinates.
// Keyframes use the annotations of their sample directly. Sweeps between keyframes
// interpolate each object between the previous and the owning sample.
func (c *Catalog) Boxes(sampleDataToken string) ([]geom.Box, error) {
	sd, err := c.SampleData(sampleDataToken)
	if err != nil {
		return nil, err
	}
	curr, err := c.Sample(sd.SampleToken)
	if err != nil {
		return nil, err
	}

	if sd.IsKeyFrame || curr.Prev == "" {
		boxes := make([]geom.Box, 0, len(curr.Anns))
		for _, token := range curr.Anns {
			ann, err := c.SampleAnnotation(token)
			if err != nil {
				return nil, err
			}
			box, err := BoxFromAnnotation(ann)
			if err != nil {
				return nil, err
			}
			boxes = append(boxes, box)
		}
		return boxes, nil
	}

	prev, err := c.Sample(curr.Prev)
	if err != nil {
		return nil, err
	}
	prevByInstance := map[string]*SampleAnnotation{}
	for _, token := range prev.Anns {
		ann, err := c.SampleAnnotation(token)
		if err != nil {
			return nil, err
		}
		prevByInstance[ann.InstanceToken] = ann
	}

	t0 := float64(prev.Timestamp)
	t1 := float64(curr.Timestamp)
	t := max(t0, min(t1, float64(sd.Timestamp)))
	amount := 0.0
	if t1 > t0 {
		amount = (t - t0) / (t1 - t0)
	}

	boxes := make([]geom.Box, 0, len(curr.Anns))
	for _, token := range curr.Anns {
		ann, err := c.SampleAnnotation(token)
		if err != nil {
			return nil, err
		}
		box, err := BoxFromAnnotation(ann)
		if err != nil {
			return nil, err
		}
		if p, ok := prevByInstance[ann.InstanceToken]; ok {
			pbox, err := BoxFromAnnotation(p)
			if err != nil {
				return nil, err
			}
			for i := 0; i < 3; i++ {
				box.Center[i] = pbox.Center[i] + amount*(box.Center[i]-pbox.Center[i])
			}
			box.Orientation = geom.Slerp(pbox.Orientation, box.Orientation, amount)
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// CameraView resolves a camera sample_data into its image, intrinsic, and the boxes
// that are visible under 'vis'. Boxes are moved from the global frame into the ego
// vehicle frame, and then into the camera frame.
// The caller is expected to have checked that the sample_data is a camera capture.
func (c *Catalog) CameraView(sampleDataToken string, vis geom.Visibility) (*CameraView, error) {
	sd, err := c.SampleData(sampleDataToken)
	if err != nil {
		return nil, err
	}
	cs, ok := c.calibratedSensors[sd.CalibratedSensorToken]
	if !ok {
		return nil, fmt.Errorf("%w: calibrated_sensor %v of sample_data %v", ErrMissingCalibration, sd.CalibratedSensorToken, sd.Token)
	}
	pose, ok := c.egoPoses[sd.EgoPoseToken]
	if !ok {
		return nil, fmt.Errorf("%w: ego_pose %v of sample_data %v", ErrMissingCalibration, sd.EgoPoseToken, sd.Token)
	}
	if len(cs.CameraIntrinsic) == 0 {
		return nil, fmt.Errorf("%w: calibrated_sensor %v has no camera intrinsic", ErrMissingCalibration, cs.Token)
	}
	k, err := geom.IntrinsicFromRows(cs.CameraIntrinsic)
	if err != nil {
		return nil, fmt.Errorf("%w: calibrated_sensor %v: %w", ErrMissingCalibration, cs.Token, err)
	}
	poseT, err := vec3(pose.Translation, "ego_pose translation")
	if err != nil {
		return nil, err
	}
	poseR, err := quaternion(pose.Rotation, "ego_pose rotation")
	if err != nil {
		return nil, err
	}
	sensorT, err := vec3(cs.Translation, "calibrated_sensor translation")
	if err != nil {
		return nil, err
	}
	sensorR, err := quaternion(cs.Rotation, "calibrated_sensor rotation")
	if err != nil {
		return nil, err
	}

	global, err := c.Boxes(sampleDataToken)
	if err != nil {
		return nil, err
	}

	poseInv := poseR.Inverse()
	sensorInv := sensorR.Inverse()
	boxes := make([]geom.Box, 0, len(global))
	for _, box := range global {
		// global -> ego
		box.Translate(poseT.Neg())
		box.Rotate(poseInv)
		// ego -> camera
		box.Translate(sensorT.Neg())
		box.Rotate(sensorInv)
		if !geom.BoxInImage(&box, k, sd.Width, sd.Height, vis) {
			continue
		}
		boxes = append(boxes, box)
	}

	return &CameraView{
		ImagePath: filepath.Join(c.DataRoot, sd.Filename),
		Width:     sd.Width,
		Height:    sd.Height,
		Boxes:     boxes,
		Intrinsic: k,
	}, nil
}
