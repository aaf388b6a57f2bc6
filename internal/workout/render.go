package workout

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Metadata describes a workout file. Name must be non-empty; callers enforce
// that before rendering.
type Metadata struct {
	Author      string
	Name        string
	Description string
}

// Render writes the workout as a Zwift workout file. The output depends only
// on its inputs, so rendering the same workout twice yields identical bytes.
func Render(w io.Writer, wo *Workout, meta Metadata) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "<workout_file>")
	fmt.Fprintf(bw, "  <author>%s</author>\n", escape(meta.Author))
	fmt.Fprintf(bw, "  <name>%s</name>\n", escape(meta.Name))
	fmt.Fprintf(bw, "  <description>%s</description>\n", escape(meta.Description))
	fmt.Fprintln(bw, "  <sportType>bike</sportType>")
	fmt.Fprintln(bw, "  <tags></tags>")
	fmt.Fprintln(bw, "  <workout>")
	for _, t := range wo.Program {
		fmt.Fprintf(bw, "    %s\n", element(t, wo.FTP))
	}
	fmt.Fprintln(bw, "  </workout>")
	fmt.Fprintln(bw, "</workout_file>")

	return bw.Flush()
}

// RenderString renders the workout into a string.
func RenderString(wo *Workout, meta Metadata) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, wo, meta); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// element renders one body element.
func element(t Treatment, ftp int) string {
	switch v := t.(type) {
	case *FreeRide:
		return fmt.Sprintf(`<Freeride Duration="%d"%s/>`, v.Seconds, cadenceAttrs(v.Cadence))
	case *SteadyEffort:
		return fmt.Sprintf(`<SteadyState Duration="%d" Power="%s"%s pace="0"/>`,
			v.Seconds, Ratio(v.Watts, ftp), cadenceAttrs(v.Cadence))
	case *RampEffort:
		tag, low, high := "Warmup", v.StartWatts, v.EndWatts
		if v.StartWatts > v.EndWatts {
			tag, low, high = "Cooldown", v.EndWatts, v.StartWatts
		}
		return fmt.Sprintf(`<%s Duration="%d" PowerLow="%s" PowerHigh="%s"%s pace="0"/>`,
			tag, v.Seconds, Ratio(low, ftp), Ratio(high, ftp), cadenceAttrs(v.Cadence))
	default:
		panic(fmt.Sprintf("workout: unknown treatment %T", t))
	}
}

func cadenceAttrs(c *CadenceBand) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf(` CadenceLow="%d" CadenceHigh="%d"`, c.Low, c.High)
}

// Ratio returns watts/ftp rounded to two decimals, half away from zero,
// formatted with at least one fractional digit ("0.8", "1.0", "0.85").
// Rounding is exact: 29/200 yields "0.15", and scaling both operands by
// the same factor never changes the result.
func Ratio(watts, ftp int) string {
	hundredths := (200*int64(watts) + int64(ftp)) / (2 * int64(ftp))
	whole, frac := hundredths/100, hundredths%100
	switch {
	case frac == 0:
		return strconv.FormatInt(whole, 10) + ".0"
	case frac%10 == 0:
		return fmt.Sprintf("%d.%d", whole, frac/10)
	default:
		return fmt.Sprintf("%d.%02d", whole, frac)
	}
}

func escape(s string) string {
	var sb strings.Builder
	// xml.EscapeText only fails when the writer fails; strings.Builder never does.
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
