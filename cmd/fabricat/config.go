package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/dep2p/go-fabricat"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// ============================================================================
//                              环境变量
// ============================================================================

// 环境变量（FABRICAT_ 前缀），优先级高于配置文件，低于命令行参数
const (
	EnvLogLevel       = "FABRICAT_LOG_LEVEL"
	EnvConfig         = "FABRICAT_CONFIG"
	EnvIntrospectAddr = "FABRICAT_INTROSPECT_ADDR"
	EnvMaxPorts       = "FABRICAT_MAX_PORTS"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ============================================================================
//                              配置文件（CLI 专用）
// ============================================================================

// serveConfig serve 命令的配置文件
//
// 在 UserConfig 之外增加启动时注册的端口列表：
//
//	{
//	  "max_ports": 4,
//	  "loopback": {"enable": true},
//	  "introspect": {"enable": true},
//	  "ports": [
//	    {"link_address": "00:02:c9:00:00:01", "interface": "ib0",
//	     "port_guid": "0x0002c90300000001", "pkey": 65535, "kind": "cached"}
//	  ]
//	}
type serveConfig struct {
	fabricat.UserConfig

	Ports []portSpec `json:"ports,omitempty"`
}

// portSpec 启动时注册的本地端口
type portSpec struct {
	LinkAddress string `json:"link_address"`

	// Interface 接口名，与 InterfaceID 二选一
	Interface   string `json:"interface,omitempty"`
	InterfaceID uint64 `json:"interface_id,omitempty"`

	PortGUID string `json:"port_guid"`
	CAGUID   string `json:"ca_guid,omitempty"`
	PKey     uint16 `json:"pkey"`

	// Kind cached | direct，默认 cached
	Kind string `json:"kind,omitempty"`

	// SubnetPrefix 十六进制子网前缀，空表示链路本地
	SubnetPrefix string `json:"subnet_prefix,omitempty"`
}

// loadConfigFile 从 JSON 文件加载配置
func loadConfigFile(path string) (*serveConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, err
	}

	var cfg serveConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖配置
func applyEnvOverrides(cfg *serveConfig) {
	if v := os.Getenv(EnvIntrospectAddr); v != "" {
		if cfg.Introspect == nil {
			cfg.Introspect = &fabricat.IntrospectConfig{}
		}
		cfg.Introspect.Enable = true
		cfg.Introspect.Addr = v
	}

	if v := os.Getenv(EnvMaxPorts); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPorts = n
		}
	}
}

// registration 将端口描述转换为注册参数
func (p portSpec) registration(owner types.OwnerID) (fabricat.Registration, error) {
	la, err := types.ParseLinkAddress(p.LinkAddress)
	if err != nil {
		return fabricat.Registration{}, err
	}

	ifaceID := p.InterfaceID
	if p.Interface != "" {
		iface, err := net.InterfaceByName(p.Interface)
		if err != nil {
			return fabricat.Registration{}, fmt.Errorf("interface %s: %w", p.Interface, err)
		}
		ifaceID = uint64(iface.Index)
	}

	guid, err := parseHex64(p.PortGUID)
	if err != nil {
		return fabricat.Registration{}, fmt.Errorf("port_guid: %w", err)
	}
	caGUID, err := parseHex64(p.CAGUID)
	if err != nil {
		return fabricat.Registration{}, fmt.Errorf("ca_guid: %w", err)
	}
	prefix, err := parseHex64(p.SubnetPrefix)
	if err != nil {
		return fabricat.Registration{}, fmt.Errorf("subnet_prefix: %w", err)
	}

	kind := fabricat.TransportCached
	switch strings.ToLower(p.Kind) {
	case "", "cached":
	case "direct":
		kind = fabricat.TransportDirect
	default:
		return fabricat.Registration{}, fmt.Errorf("unknown port kind %q", p.Kind)
	}

	return fabricat.Registration{
		LinkAddress:  la,
		InterfaceID:  ifaceID,
		Owner:        owner,
		Record:       types.PortRecord{PortGUID: guid, PKey: p.PKey, CAGUID: caGUID},
		Kind:         kind,
		SubnetPrefix: prefix,
	}, nil
}

// parseHex64 解析可选 "0x" 前缀的十六进制数，空串为 0
func parseHex64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
