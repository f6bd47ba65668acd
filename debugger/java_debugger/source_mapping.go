package java_debugger

import "strings"

// 类名和源文件路径之间的映射规则
// 规则是启发式的，单独抽成纯函数，路径约定变化时不需要动事件循环

// GuessClassNameFromFilePath 根据源文件路径推测类的全限定名
func GuessClassNameFromFilePath(filePath string) string {
	path := strings.ReplaceAll(filePath, "\\", "/")
	path = strings.TrimPrefix(path, "/")
	if strings.HasPrefix(path, "src/main/java/") {
		path = strings.TrimPrefix(path, "src/main/java/")
	} else if strings.HasPrefix(path, "src/test/java/") {
		path = strings.TrimPrefix(path, "src/test/java/")
	}
	path = strings.TrimSuffix(path, ".java")
	return strings.ReplaceAll(path, "/", ".")
}

// GuessFilePathFromClassName 根据类的全限定名推测源文件路径
// 内部类的源文件是外部类的文件
func GuessFilePathFromClassName(className string) string {
	if i := strings.Index(className, "$"); i >= 0 {
		className = className[:i]
	}
	return "src/main/java/" + strings.ReplaceAll(className, ".", "/") + ".java"
}

// SignatureFromClassName 类名转JNI签名，如com.example.App -> Lcom/example/App;
func SignatureFromClassName(className string) string {
	return "L" + strings.ReplaceAll(className, ".", "/") + ";"
}

// ClassNameFromSignature JNI签名转类名
func ClassNameFromSignature(signature string) string {
	name := TypeNameFromSignature(signature)
	return name
}

// TypeNameFromSignature JNI签名转可读类型名，用于变量类型和值的渲染
func TypeNameFromSignature(signature string) string {
	if signature == "" {
		return ""
	}
	switch signature[0] {
	case 'Z':
		return "boolean"
	case 'B':
		return "byte"
	case 'C':
		return "char"
	case 'S':
		return "short"
	case 'I':
		return "int"
	case 'J':
		return "long"
	case 'F':
		return "float"
	case 'D':
		return "double"
	case 'V':
		return "void"
	case '[':
		return TypeNameFromSignature(signature[1:]) + "[]"
	case 'L':
		name := strings.TrimPrefix(signature, "L")
		name = strings.TrimSuffix(name, ";")
		return strings.ReplaceAll(name, "/", ".")
	}
	return signature
}

// IsJDKClass 判断一个类名是否属于JDK核心库
// 暂停在这些类中时不通知前端，而是自动步出
func IsJDKClass(className string) bool {
	return strings.HasPrefix(className, "java.") ||
		strings.HasPrefix(className, "javax.") ||
		strings.HasPrefix(className, "jdk.") ||
		strings.HasPrefix(className, "sun.") ||
		strings.HasPrefix(className, "com.sun.")
}
