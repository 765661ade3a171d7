package deplink

// PeerSource is the slice of the peer coordinator a peer-group link
// consumes: existence of the peer channel and the shared app data.
type PeerSource interface {
	Connected() bool
	AppData() map[string]string
}

// PeerGroup links to the co-deployed instances of this same service.
// It is ready as soon as the peer channel exists at all; no peer data
// is required.
type PeerGroup struct {
	name      string
	mandatory bool
	src       PeerSource
}

func NewPeerGroup(name string, mandatory bool, src PeerSource) *PeerGroup {
	return &PeerGroup{name: name, mandatory: mandatory, src: src}
}

func (p *PeerGroup) Name() string    { return p.name }
func (p *PeerGroup) Mandatory() bool { return p.mandatory }

func (p *PeerGroup) Ready() bool {
	return p.src != nil && p.src.Connected()
}

// Context exposes all app-scoped peer data, keys already normalised
// by the coordinator.
func (p *PeerGroup) Context() map[string]string {
	if !p.Ready() {
		return map[string]string{}
	}
	return p.src.AppData()
}
