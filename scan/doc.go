// Package scan 提供基于规则的代码安全扫描，作为编排器的
// 安全扫描协作方使用。
package scan
