package testutil

// ObsHeader collects the primary-header values the diagnostics read from
// every WEAVE exposure.
type ObsHeader struct {
	Run      int64
	OBID     int64
	Camera   string // "RED" or "BLUE"
	MJD      float64
	ObsTemp  string
	SkyBrTel float64
	SeeingB  float64
	ResObs   string // "LR" or "HR"
}

// Cards renders the header as FITS cards for BuildPrimary.
func (o ObsHeader) Cards() []string {
	res := o.ResObs
	if res == "" {
		res = "LR"
	}
	return []string{
		KV("RUN", o.Run),
		KV("OBID", o.OBID),
		KV("CAMERA", o.Camera),
		KV("MJD-OBS", o.MJD),
		KV("OBSTEMP", o.ObsTemp),
		KV("SKYBRTEL", o.SkyBrTel),
		KV("SEEINGB", o.SeeingB),
		KV("RES-OBS", res),
	}
}

// BuildRawFile assembles a raw exposure: primary header plus the two
// detector-amplifier count images, stored as unsigned 16-bit when they fit
// and as doubles when the test needs negative or non-finite pixels.
func BuildRawFile(o ObsHeader, counts1, counts2 [][]float64) [][]byte {
	bitpix, bzero := 16, 32768.0
	for _, img := range [][][]float64{counts1, counts2} {
		for _, row := range img {
			for _, v := range row {
				if v < 0 || v != v || v > 65535 {
					bitpix, bzero = -64, 0
				}
			}
		}
	}
	return [][]byte{
		BuildPrimary(o.Cards()...),
		BuildImageExt("COUNTS1", bitpix, bzero, counts1),
		BuildImageExt("COUNTS2", bitpix, bzero, counts2),
	}
}

// BuildL1File assembles an L1 exposure: primary header, the named spectral
// image extensions (each row one fibre spectrum) and a fibre table with the
// given TARGUSE flags.
func BuildL1File(o ObsHeader, ext map[string][][]float64, targuse []string) [][]byte {
	hdus := [][]byte{BuildPrimary(o.Cards()...)}
	// Deterministic extension order keeps fixtures reproducible.
	for _, name := range []string{"FLUX", "FLUX_NOSS", "IVAR", "IVAR_NOSS", "SENSFUNC"} {
		if pixels, ok := ext[name]; ok {
			hdus = append(hdus, BuildImageExt(name, -64, 0, pixels))
		}
	}
	if targuse != nil {
		hdus = append(hdus, BuildTableExt("FIBTABLE", len(targuse), []TableColumn{
			{Name: "TARGUSE", TForm: "1A", Strings: targuse},
		}))
	}
	return hdus
}
