package orchestrator

// Progress summarizes how far a session got, measured from its resume cursor.
type Progress struct {
	SessionID        string  `json:"session_id"`
	Phase            string  `json:"phase"`
	Layer            int     `json:"layer"`
	LayersTotal      int     `json:"layers_total"`
	LayersLeft       int     `json:"layers_left"`
	CellsTotal       int     `json:"cells_total"`
	CellsSwept       int     `json:"cells_swept"`
	Percent          float64 `json:"percent"`
	Bins             int     `json:"bins"`
	Paused           bool    `json:"paused"`
	WaitingOnStorage bool    `json:"waiting_on_storage"`
}

func (o *Orchestrator) Progress(id string) (Progress, error) {
	st, rt, err := o.lookup(id)
	if err != nil {
		return Progress{}, err
	}
	cur := rt.loop.ResumeCursor()
	floor := o.cfg.Quarry.DepthFloor
	layers := st.Base.Y - floor + 1
	if layers < 0 {
		layers = 0
	}
	area := st.Width * st.Length
	p := Progress{
		SessionID:        id,
		Phase:            rt.loop.Phase().String(),
		Layer:            cur.Y,
		LayersTotal:      layers,
		CellsTotal:       layers * area,
		Bins:             rt.router.Len(),
		Paused:           st.Paused,
		WaitingOnStorage: st.WaitingOnStorage,
	}
	if cur.Y < floor {
		p.CellsSwept = p.CellsTotal
	} else {
		var inLayer int
		if cur.ScanXFirst {
			inLayer = (cur.Z-cur.MinZ)*cur.Width + (cur.X - cur.MinX)
		} else {
			inLayer = (cur.X-cur.MinX)*cur.Length + (cur.Z - cur.MinZ)
		}
		p.CellsSwept = (st.Base.Y-cur.Y)*area + inLayer
		p.LayersLeft = cur.Y - floor + 1
	}
	if p.CellsTotal > 0 {
		p.Percent = float64(p.CellsSwept) * 100 / float64(p.CellsTotal)
	}
	return p, nil
}
