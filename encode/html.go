package encode

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	specutil "github.com/sixy6e/go-specutil"
)

// htmlChartData is the JSON payload embedded in the page WriteHTML
// produces. It carries channel/energy/count triples rather than the
// XML/binary layouts the other formats use, since the only consumer is
// a browser-side chart, not another decoder.
type htmlChartData struct {
	DetectorName string    `json:"detector_name"`
	LiveTimeS    float64   `json:"live_time_s"`
	RealTimeS    float64   `json:"real_time_s"`
	Channel      []int     `json:"channel"`
	EnergyKeV    []float64 `json:"energy_kev"`
	Counts       []float64 `json:"counts"`
}

// htmlPageTemplate is a minimal static shell: it embeds the spectrum as
// a JSON blob in a <script> tag and leaves actual charting to whatever
// the caller's page already loads, per the "no vendored charting
// library" non-goal — this package draws nothing itself.
var htmlPageTemplate = template.Must(template.New("spectrum").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<script id="spectrum-data" type="application/json">{{.JSON}}</script>
</body>
</html>
`))

// WriteHTML writes m as a minimal HTML page embedding its spectrum as a
// JSON blob for a caller-supplied charting script to read out of the
// page's #spectrum-data element; it is the one encoder in this package
// with no decode-side counterpart, since nothing reads HTML back in.
func WriteHTML(w io.Writer, m specutil.Measurement) error {
	if len(m.GammaCounts) == 0 {
		return fmt.Errorf("%w: no gamma counts to write", specutil.ErrOutput)
	}

	data := htmlChartData{
		DetectorName: orDefault(m.DetectorName, "gamma"),
		LiveTimeS:    m.LiveTimeS,
		RealTimeS:    m.RealTimeS,
		Channel:      make([]int, len(m.GammaCounts)),
		EnergyKeV:    make([]float64, len(m.GammaCounts)),
		Counts:       append([]float64(nil), m.GammaCounts...),
	}
	for i := range m.GammaCounts {
		data.Channel[i] = i
		if m.GammaCalibration.IsValid() {
			data.EnergyKeV[i], _ = m.GammaCalibration.EnergyForChannel(float64(i))
		}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}

	err = htmlPageTemplate.Execute(w, struct {
		Title string
		JSON  template.JS
	}{
		Title: data.DetectorName,
		JSON:  template.JS(payload),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}
	return nil
}
