package render

import (
	"image/color"

	"github.com/cespare/xxhash/v2"
)

// Colors of the nuScenes categories, as used by the dataset's own devkit renders
var categoryColors = map[string]color.RGBA{
	"noise":                                {0, 0, 0, 255},
	"animal":                               {70, 130, 180, 255},
	"human.pedestrian.adult":               {0, 0, 230, 255},
	"human.pedestrian.child":               {135, 206, 235, 255},
	"human.pedestrian.construction_worker": {100, 149, 237, 255},
	"human.pedestrian.personal_mobility":   {219, 112, 147, 255},
	"human.pedestrian.police_officer":      {0, 0, 128, 255},
	"human.pedestrian.stroller":            {240, 128, 128, 255},
	"human.pedestrian.wheelchair":          {138, 43, 226, 255},
	"movable_object.barrier":               {112, 128, 144, 255},
	"movable_object.debris":                {210, 105, 30, 255},
	"movable_object.pushable_pullable":     {105, 105, 105, 255},
	"movable_object.trafficcone":           {47, 79, 79, 255},
	"static_object.bicycle_rack":           {188, 143, 143, 255},
	"vehicle.bicycle":                      {220, 20, 60, 255},
	"vehicle.bus.bendy":                    {255, 127, 80, 255},
	"vehicle.bus.rigid":                    {255, 69, 0, 255},
	"vehicle.car":                          {255, 158, 0, 255},
	"vehicle.construction":                 {233, 150, 70, 255},
	"vehicle.emergency.ambulance":          {255, 83, 0, 255},
	"vehicle.emergency.police":             {255, 215, 0, 255},
	"vehicle.motorcycle":                   {255, 61, 99, 255},
	"vehicle.trailer":                      {255, 140, 0, 255},
	"vehicle.truck":                        {255, 99, 71, 255},
	"flat.driveable_surface":               {0, 207, 191, 255},
	"flat.other":                           {175, 0, 75, 255},
	"flat.sidewalk":                        {75, 0, 75, 255},
	"flat.terrain":                         {112, 180, 60, 255},
	"static.manmade":                       {222, 184, 135, 255},
	"static.other":                         {255, 228, 196, 255},
	"static.vegetation":                    {0, 175, 0, 255},
	"vehicle.ego":                          {255, 240, 245, 255},
}

// Fallback palette for labels outside the nuScenes taxonomy
var palette = []color.RGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{255, 0, 255, 255},
	{51, 153, 153, 255},
	{102, 51, 204, 255},
	{102, 153, 204, 255},
	{102, 255, 204, 255},
	{204, 102, 51, 255},
	{204, 255, 102, 255},
	{69, 179, 157, 255},
	{250, 215, 160, 255},
}

// LabelColor returns the wireframe color of a label.
// This is a pure function, so the same class has the same color in every frame and every run.
func LabelColor(label string) color.RGBA {
	if c, ok := categoryColors[label]; ok {
		return c
	}
	return palette[xxhash.Sum64String(label)%uint64(len(palette))]
}
