package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ControlKind selects the widget drawn for a Control.
type ControlKind string

const (
	Dropdown ControlKind = "dropdown"
	Slider   ControlKind = "slider"
)

// Step is one choice of a control. Patch is merged into the chart option
// with setOption when the step is selected.
type Step struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Patch any    `json:"patch"`
}

// Control is a dropdown or slider above the chart that swaps the data
// slice, colour extent or map projection without a page reload.
type Control struct {
	Kind ControlKind `json:"kind"`
	// Label is shown beside the widget.
	Label string `json:"label"`
	// Prefix is prepended to the current step label of a slider.
	Prefix string `json:"prefix"`
	Steps  []Step `json:"steps"`
	Active int    `json:"active"`
}

// ActiveKey returns the key of the initially selected step.
func (c Control) ActiveKey() string {
	if c.Active < 0 || c.Active >= len(c.Steps) {
		return ""
	}
	return c.Steps[c.Active].Key
}

// IndexOf returns the position of key among the steps, or -1.
func IndexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

// NewChartID returns an element id that is also a valid JS identifier
// suffix, so go-echarts can name the instance variable after it.
func NewChartID() string {
	return "climate" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type controlPayload struct {
	ID       string    `json:"id"`
	Controls []Control `json:"controls"`
	Extra    any       `json:"extra,omitempty"`
}

// controlScript builds the JS injected after the chart's first setOption.
// The payload is exposed as window.<chartID>_data so option callbacks
// such as tooltip formatters can read it. go-echarts strips newlines from
// injected functions, so every statement ends in a semicolon.
func controlScript(chartID string, controls []Control, extra any) (string, error) {
	payload, err := json.Marshal(controlPayload{ID: chartID, Controls: controls, Extra: extra})
	if err != nil {
		return "", fmt.Errorf("marshal controls: %w", err)
	}
	var b strings.Builder
	b.WriteString("(function(){")
	b.WriteString("var chart = %MY_ECHARTS%;")
	fmt.Fprintf(&b, "var d = %s;", payload)
	fmt.Fprintf(&b, "window[%q] = d;", chartID+"_data")
	b.WriteString(`var host = document.getElementById(d.id).parentNode;
	var bar = document.createElement('div');
	bar.className = 'climate-controls';
	bar.style.cssText = 'display:flex;gap:24px;justify-content:center;align-items:center;margin-top:16px;font-family:sans-serif;';
	host.parentNode.insertBefore(bar, host);
	d.controls.forEach(function(c){
		var wrap = document.createElement('div');
		wrap.className = 'climate-control';
		var label = document.createElement('label');
		label.textContent = c.label;
		label.style.marginRight = '8px';
		wrap.appendChild(label);
		var input;
		var out = null;
		if (c.kind === 'dropdown') {
			input = document.createElement('select');
			c.steps.forEach(function(s, i){
				var opt = document.createElement('option');
				opt.value = String(i);
				opt.textContent = s.label;
				input.appendChild(opt);
			});
		} else {
			input = document.createElement('input');
			input.type = 'range';
			input.min = '0';
			input.max = String(c.steps.length - 1);
			input.step = '1';
			input.style.width = '480px';
			out = document.createElement('span');
			out.style.marginLeft = '8px';
		}
		input.value = String(c.active);
		var apply = function(){
			var s = c.steps[Number(input.value)];
			if (out) { out.textContent = c.prefix + s.label; }
			chart.setOption(s.patch);
		};
		input.addEventListener(c.kind === 'dropdown' ? 'change' : 'input', apply);
		wrap.appendChild(input);
		if (out) { out.textContent = c.prefix + c.steps[c.active].label; wrap.appendChild(out); }
		bar.appendChild(wrap);
	});
	})();`)
	return b.String(), nil
}

// nullable converts NaN and infinities to nil so they marshal as null.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// missing is the echarts marker for an absent data value.
const missing = "-"

func valueOrMissing(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return v
}
