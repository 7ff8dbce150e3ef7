// Package lib 包含基础设施工具库
//
// 本目录包含与协议引擎无关的通用工具库：
//
//   - crypto: RSA 密钥对与 OAEP 加解密
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 组件公共接口
//   - types/: 公共类型定义
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/bRuttaZz/stmp/pkg/lib/crypto"
//	    "github.com/bRuttaZz/stmp/pkg/lib/log"
//	)
package lib
