package nuscenes

// Records as they appear in the nuScenes JSON tables.
// Only the fields that scenereel reads are declared.

type Scene struct {
	Token            string `json:"token"`
	LogToken         string `json:"log_token"`
	NbrSamples       int    `json:"nbr_samples"`
	FirstSampleToken string `json:"first_sample_token"`
	LastSampleToken  string `json:"last_sample_token"`
	Name             string `json:"name"`
	Description      string `json:"description"`
}

type Sample struct {
	Token      string `json:"token"`
	Timestamp  int64  `json:"timestamp"`
	Prev       string `json:"prev"`
	Next       string `json:"next"` // Empty on the last sample of a scene
	SceneToken string `json:"scene_token"`

	// Reverse indexes, built after loading
	Data map[string]string `json:"-"` // Channel -> keyframe sample_data token
	Anns []string          `json:"-"` // sample_annotation tokens
}

type SampleData struct {
	Token                 string `json:"token"`
	SampleToken           string `json:"sample_token"`
	EgoPoseToken          string `json:"ego_pose_token"`
	CalibratedSensorToken string `json:"calibrated_sensor_token"`
	Filename              string `json:"filename"`
	FileFormat            string `json:"fileformat"`
	Width                 int    `json:"width"`
	Height                int    `json:"height"`
	Timestamp             int64  `json:"timestamp"`
	IsKeyFrame            bool   `json:"is_key_frame"`
	Prev                  string `json:"prev"`
	Next                  string `json:"next"`

	// Copied from the sensor table
	SensorModality string `json:"-"`
	Channel        string `json:"-"`
}

type Sensor struct {
	Token    string `json:"token"`
	Channel  string `json:"channel"`
	Modality string `json:"modality"`
}

type CalibratedSensor struct {
	Token           string      `json:"token"`
	SensorToken     string      `json:"sensor_token"`
	Translation     []float64   `json:"translation"`
	Rotation        []float64   `json:"rotation"`         // w,x,y,z
	CameraIntrinsic [][]float64 `json:"camera_intrinsic"` // Empty for non-camera sensors
}

type EgoPose struct {
	Token       string    `json:"token"`
	Timestamp   int64     `json:"timestamp"`
	Translation []float64 `json:"translation"`
	Rotation    []float64 `json:"rotation"`
}

type Instance struct {
	Token         string `json:"token"`
	CategoryToken string `json:"category_token"`
}

type Category struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SampleAnnotation struct {
	Token         string    `json:"token"`
	SampleToken   string    `json:"sample_token"`
	InstanceToken string    `json:"instance_token"`
	Translation   []float64 `json:"translation"`
	Size          []float64 `json:"size"`     // w,l,h
	Rotation      []float64 `json:"rotation"` // w,x,y,z

	CategoryName string `json:"-"`
}

// Sensor modalities
const (
	ModalityCamera = "camera"
	ModalityLidar  = "lidar"
	ModalityRadar  = "radar"
)

// Camera channels of the nuScenes rig
const (
	ChannelCamFront      = "CAM_FRONT"
	ChannelCamFrontLeft  = "CAM_FRONT_LEFT"
	ChannelCamFrontRight = "CAM_FRONT_RIGHT"
	ChannelCamBack       = "CAM_BACK"
	ChannelCamBackLeft   = "CAM_BACK_LEFT"
	ChannelCamBackRight  = "CAM_BACK_RIGHT"
)

var CameraChannels = []string{
	ChannelCamFront,
	ChannelCamFrontLeft,
	ChannelCamFrontRight,
	ChannelCamBack,
	ChannelCamBackLeft,
	ChannelCamBackRight,
}
