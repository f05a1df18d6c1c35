package fleet

// ShutdownBehavior controls what an instance does on an OS-initiated shutdown.
type ShutdownBehavior string

// Shutdown behaviors.
const (
	ShutdownStop      ShutdownBehavior = "stop"
	ShutdownTerminate ShutdownBehavior = "terminate"
)

// VolumeTypeIO1 is the provisioned-IOPS volume type.
const VolumeTypeIO1 = "io1"

// BlockDevice describes one entry of a block device mapping.
//
// DeviceType is the deprecated spelling of VolumeType; setting both is a
// validation error. A VolumeSize of zero asks for the volume to be skipped.
type BlockDevice struct {
	DeviceName          string
	DeviceType          string
	VolumeType          string
	VolumeSize          *int32
	IOPS                *int32
	SnapshotID          string
	Ephemeral           string
	Encrypted           *bool
	DeleteOnTermination bool
}

// LaunchSpec is everything needed to create instances.
type LaunchSpec struct {
	ImageID             string
	InstanceType        string
	KeyName             string
	Zone                string
	Tenancy             string
	Monitoring          bool
	KernelID            string
	RamdiskID           string
	UserData            string
	PlacementGroup      string
	EBSOptimized        bool
	SubnetID            string
	AssignPublicIP      bool
	PrivateIP           string
	InstanceProfileName string
	SecurityGroupNames  []string
	SecurityGroupIDs    []string
	NetworkInterfaceIDs []string
	Volumes             []BlockDevice
	ShutdownBehavior    ShutdownBehavior
	ClientToken         string
	Count               int32
}

// SpotType is the persistence of a spot request.
type SpotType string

// Spot request types.
const (
	SpotOneTime    SpotType = "one-time"
	SpotPersistent SpotType = "persistent"
)

// SpotOptions are the bid parameters of a spot request.
type SpotOptions struct {
	Price       string
	Type        SpotType
	LaunchGroup string
}

// SpotState is the lifecycle state of a spot request.
type SpotState string

// Spot request states.
const (
	SpotStateOpen      SpotState = "open"
	SpotStateActive    SpotState = "active"
	SpotStateFailed    SpotState = "failed"
	SpotStateCancelled SpotState = "cancelled"
	SpotStateClosed    SpotState = "closed"
)

// SpotStatusTerminatedByUser is the status code of a request closed because
// its instance was terminated through the API.
const SpotStatusTerminatedByUser = "instance-terminated-by-user"

// SpotRequest is an outstanding bid for spare capacity.
type SpotRequest struct {
	ID            string
	State         SpotState
	InstanceID    string
	StatusCode    string
	StatusMessage string
	FaultCode     string
	FaultMessage  string
}
