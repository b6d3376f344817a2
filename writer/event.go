package writer

import (
	"encoding/json"
	"path/filepath"
)

// Event is the completion event published for every written file.
type Event struct {
	NominalTime any       `json:"nominal_time"`
	UID         string    `json:"uid"`
	URI         string    `json:"uri"`
	Area        EventArea `json:"area"`
	ProductName string    `json:"productname"`
}

// EventArea is the area descriptor carried by an [Event].
type EventArea struct {
	Name   string `json:"name"`
	AreaID string `json:"area_id"`
	ProjID string `json:"proj_id"`
	Proj4  string `json:"proj4"`
	Shape  [2]int `json:"shape"`
}

func newEvent(filename, product string, nominalTime any, area *Area) (*Event, error) {
	uri, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	return &Event{
		NominalTime: nominalTime,
		UID:         filepath.Base(filename),
		URI:         uri,
		Area: EventArea{
			Name:   area.Name,
			AreaID: area.AreaID,
			ProjID: area.ProjID,
			Proj4:  area.Proj4,
			Shape:  [2]int{area.XSize, area.YSize},
		},
		ProductName: product,
	}, nil
}

func (e *Event) String() string {
	raw, _ := json.Marshal(e)
	return string(raw)
}
